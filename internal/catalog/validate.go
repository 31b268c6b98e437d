package catalog

import (
	"fmt"
	"strings"

	"github.com/wolfman30/agenda-platform/internal/calendar"
)

func validateProvider(p *Provider) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("catalog: provider name required")
	}
	if p.BufferMinutes < 0 {
		return fmt.Errorf("catalog: buffer minutes must not be negative")
	}
	seen := make(map[string]bool, len(p.WorkingDays))
	for i, d := range p.WorkingDays {
		d = strings.ToLower(strings.TrimSpace(d))
		if !calendar.ValidWeekday(d) {
			return fmt.Errorf("catalog: unknown working day %q", d)
		}
		if seen[d] {
			return fmt.Errorf("catalog: duplicate working day %q", d)
		}
		seen[d] = true
		p.WorkingDays[i] = d
	}
	return nil
}
