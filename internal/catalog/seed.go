package catalog

import (
	"context"
	"fmt"
)

type seedProcedure struct {
	code     string
	name     string
	duration int
	price    string
}

type seedProvider struct {
	name       string
	specialty  string
	days       []string
	buffer     int
	procedures []seedProcedure
}

var demoProviders = []seedProvider{
	{
		name: "Rayssa", specialty: "Haircut and Styling", buffer: 15,
		days: []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"},
		procedures: []seedProcedure{
			{"101", "Simple Haircut", 30, "50.00"},
			{"102", "Haircut with Straightening", 90, "120.00"},
			{"103", "Blowout", 45, "60.00"},
		},
	},
	{
		name: "Marcia", specialty: "Manicure and Pedicure", buffer: 20,
		days: []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"},
		procedures: []seedProcedure{
			{"201", "Manicure", 30, "40.00"},
			{"202", "Pedicure", 40, "50.00"},
			{"203", "Nail Extensions", 60, "80.00"},
		},
	},
	{
		name: "Mirian", specialty: "Hair Treatments", buffer: 30,
		days: []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		procedures: []seedProcedure{
			{"301", "Hydration", 60, "70.00"},
			{"302", "Hair Botox", 50, "90.00"},
			{"303", "Keratin Treatment", 120, "150.00"},
		},
	},
}

// SeedDemo loads the demo providers and procedures into an empty repository.
// The SQL seed migration carries the same rows.
func SeedDemo(ctx context.Context, repo Repository) error {
	existing, err := repo.ListActiveProviders(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, sp := range demoProviders {
		p := &Provider{
			Name:          sp.name,
			Specialty:     sp.specialty,
			WorkingDays:   append([]string(nil), sp.days...),
			BufferMinutes: sp.buffer,
			Active:        true,
		}
		if err := repo.CreateProvider(ctx, p); err != nil {
			return fmt.Errorf("catalog: seed provider %s: %w", sp.name, err)
		}
		for _, proc := range sp.procedures {
			if err := repo.CreateProcedure(ctx, &Procedure{
				ProviderID:      p.ID,
				Code:            proc.code,
				Name:            proc.name,
				Description:     "Procedure: " + proc.name,
				Price:           proc.price,
				DurationMinutes: proc.duration,
				Active:          true,
			}); err != nil {
				return fmt.Errorf("catalog: seed procedure %s: %w", proc.code, err)
			}
		}
	}
	return nil
}
