// Package conversation runs the chat booking flow: a per-channel state
// machine, its session stores, and the queue plumbing that feeds it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/agenda-platform/internal/appointments"
	"github.com/wolfman30/agenda-platform/internal/calendar"
	"github.com/wolfman30/agenda-platform/internal/catalog"
	"github.com/wolfman30/agenda-platform/internal/observability/metrics"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

var conversationTracer = otel.Tracer("agenda.internal.conversation")

// DefaultDateHorizon keeps the chat date menu short.
const DefaultDateHorizon = 7

const (
	msgRetry       = "Sorry, something went wrong on our side. Please try again in a moment."
	msgHandoff     = "👋 An attendant will contact you shortly!"
	msgInvalidMenu = "Invalid option. Reply 1, 2, 3 or 4."
)

// Catalog lists what the chat offers.
type Catalog interface {
	ActiveProviders(ctx context.Context) ([]catalog.Provider, error)
	Procedures(ctx context.Context, providerID int64) ([]catalog.Procedure, error)
}

// Availability answers the date and time menus.
type Availability interface {
	CandidateDates(ctx context.Context, providerID int64, horizon int) ([]string, error)
	CandidateTimes(ctx context.Context, providerID int64, date string, procedureID int64) ([]string, error)
}

// Booker commits appointments.
type Booker interface {
	Create(ctx context.Context, req appointments.CreateRequest) (*appointments.Appointment, error)
}

// stageHandler maps one input in one stage to the next stage and the reply.
// Handlers record answers on the session; the machine sets the stage.
type stageHandler func(m *Machine, ctx context.Context, s *Session, in Input) (Stage, string)

var transitions map[Stage]stageHandler

func init() {
	transitions = map[Stage]stageHandler{
		StageChooseProvider:  (*Machine).chooseProvider,
		StageMainMenu:        (*Machine).mainMenu,
		StageChooseProcedure: (*Machine).chooseProcedure,
		StageCollectName:     (*Machine).collectName,
		StageCollectPhone:    (*Machine).collectPhone,
		StageChooseDate:      (*Machine).chooseDate,
		StageChooseTime:      (*Machine).chooseTime,
	}
}

// Machine is the chat booking flow.
type Machine struct {
	catalog      Catalog
	availability Availability
	booker       Booker
	sessions     SessionStore
	transcript   *TranscriptStore
	horizon      int
	clinicName   string
	metrics      *metrics.ConversationMetrics
	logger       *logging.Logger
}

// MachineOption customizes a Machine.
type MachineOption func(*Machine)

func WithDateHorizon(days int) MachineOption {
	return func(m *Machine) {
		if days > 0 {
			m.horizon = days
		}
	}
}

func WithClinicName(name string) MachineOption {
	return func(m *Machine) {
		if strings.TrimSpace(name) != "" {
			m.clinicName = strings.TrimSpace(name)
		}
	}
}

func WithTranscript(store *TranscriptStore) MachineOption {
	return func(m *Machine) { m.transcript = store }
}

func WithMetrics(cm *metrics.ConversationMetrics) MachineOption {
	return func(m *Machine) { m.metrics = cm }
}

func WithLogger(l *logging.Logger) MachineOption {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewMachine(cat Catalog, avail Availability, booker Booker, sessions SessionStore, opts ...MachineOption) *Machine {
	if cat == nil || avail == nil || booker == nil || sessions == nil {
		panic("conversation: catalog, availability, booker and session store required")
	}
	m := &Machine{
		catalog:      cat,
		availability: avail,
		booker:       booker,
		sessions:     sessions,
		horizon:      DefaultDateHorizon,
		clinicName:   "our clinic",
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle processes one message from channelID and returns the reply. Calls
// for the same channel run one at a time. The error is non-nil only when the
// session backend fails; the reply then asks the user to retry.
func (m *Machine) Handle(ctx context.Context, channelID, text string) (string, error) {
	ctx, span := conversationTracer.Start(ctx, "conversation.handle")
	defer span.End()
	span.SetAttributes(attribute.String("agenda.channel_id", channelID))

	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return "", errors.New("conversation: channel id required")
	}
	in := Normalize(text)

	if in.Handoff {
		m.metrics.ObserveHandoff()
		m.logger.Info("chat handoff requested", "channel_id", channelID)
		m.record(ctx, channelID, "", in.Raw, msgHandoff)
		return msgHandoff, nil
	}

	session, err := m.sessions.Acquire(ctx, channelID)
	if err != nil {
		span.RecordError(err)
		m.logger.Error("failed to load chat session", "error", err, "channel_id", channelID)
		return msgRetry, fmt.Errorf("conversation: acquire session: %w", err)
	}

	stage := session.Stage
	reply := m.step(ctx, session, in)
	m.metrics.ObserveMessage(stage.String())
	span.SetAttributes(attribute.String("agenda.stage", stage.String()), attribute.String("agenda.next_stage", session.Stage.String()))

	if err := m.sessions.Release(ctx, session); err != nil {
		span.RecordError(err)
		m.logger.Error("failed to save chat session", "error", err, "channel_id", channelID)
		return msgRetry, fmt.Errorf("conversation: release session: %w", err)
	}
	m.record(ctx, channelID, stage, in.Raw, reply)
	return reply, nil
}

func (m *Machine) step(ctx context.Context, s *Session, in Input) string {
	if in.Reset {
		s.Reset()
		_, reply := m.chooseProvider(ctx, s, Input{})
		return reply
	}
	handler, ok := transitions[s.Stage]
	if !ok {
		s.Reset()
		handler = transitions[StageChooseProvider]
	}
	next, reply := handler(m, ctx, s, in)
	s.Stage = next
	return reply
}

func (m *Machine) record(ctx context.Context, channelID string, stage Stage, inbound, reply string) {
	if m.transcript == nil {
		return
	}
	for _, msg := range []TranscriptMessage{
		{ChannelID: channelID, Role: RoleClient, Body: inbound, Stage: stage},
		{ChannelID: channelID, Role: RoleBot, Body: reply, Stage: stage},
	} {
		if err := m.transcript.Append(ctx, msg); err != nil {
			m.logger.Warn("failed to append chat transcript", "error", err, "channel_id", channelID)
			return
		}
	}
}

func (m *Machine) chooseProvider(ctx context.Context, s *Session, in Input) (Stage, string) {
	providers, err := m.catalog.ActiveProviders(ctx)
	if err != nil {
		m.logger.Error("failed to load providers for chat", "error", err)
		return StageChooseProvider, msgRetry
	}
	if len(providers) == 0 {
		return StageChooseProvider, "Sorry, no professionals are available right now. Please try again later."
	}
	idx, ok := in.Choice(len(providers))
	if !ok {
		var b strings.Builder
		fmt.Fprintf(&b, "🧘‍♀️ *Welcome to %s!*\n\nChoose a professional:\n\n", m.clinicName)
		for i, p := range providers {
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, p.Name, p.Specialty)
		}
		return StageChooseProvider, b.String()
	}

	chosen := providers[idx]
	s.ProviderID = chosen.ID
	s.ProviderName = chosen.Name
	return StageMainMenu, fmt.Sprintf("✨ You chose: *%s*\n\n%s", chosen.Name, mainMenuText)
}

const mainMenuText = "What would you like to do?\n\n" +
	"1. See procedures\n" +
	"2. Book a procedure\n" +
	"3. See prices\n" +
	"4. Talk to an attendant"

func (m *Machine) mainMenu(ctx context.Context, s *Session, in Input) (Stage, string) {
	switch {
	case in.HasNumber && in.Number == 1:
		return m.listProcedures(ctx, s, "📋 *Available procedures*")
	case in.HasNumber && in.Number == 2:
		if s.ProcedureID == 0 {
			return m.listProcedures(ctx, s, "📅 Which procedure would you like to book?")
		}
		return StageCollectName, fmt.Sprintf("📅 Let's book your *%s*!\n\nWhat is your full name?", s.ProcedureName)
	case in.HasNumber && in.Number == 3:
		procs, err := m.catalog.Procedures(ctx, s.ProviderID)
		if err != nil {
			m.logger.Error("failed to load prices for chat", "error", err, "provider_id", s.ProviderID)
			return StageMainMenu, msgRetry
		}
		var b strings.Builder
		b.WriteString("💰 *Prices*\n\n")
		for _, p := range procs {
			fmt.Fprintf(&b, "• %s (%d min): %s\n", p.Name, p.DurationMinutes, priceText(p.Price))
		}
		b.WriteString("\n")
		b.WriteString(mainMenuText)
		return StageMainMenu, b.String()
	case in.HasNumber && in.Number == 4:
		m.metrics.ObserveHandoff()
		return StageMainMenu, msgHandoff
	default:
		return StageMainMenu, msgInvalidMenu
	}
}

func priceText(price string) string {
	if strings.TrimSpace(price) == "" {
		return "price on request"
	}
	return "R$ " + price
}

func (m *Machine) listProcedures(ctx context.Context, s *Session, header string) (Stage, string) {
	procs, err := m.catalog.Procedures(ctx, s.ProviderID)
	if err != nil {
		m.logger.Error("failed to load procedures for chat", "error", err, "provider_id", s.ProviderID)
		return StageMainMenu, msgRetry
	}
	if len(procs) == 0 {
		return StageMainMenu, "This professional has no procedures available right now.\n\n" + mainMenuText
	}
	s.Procedures = make([]ProcedureOption, len(procs))
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for i, p := range procs {
		s.Procedures[i] = ProcedureOption{ID: p.ID, Name: p.Name, Price: p.Price, DurationMinutes: p.DurationMinutes}
		fmt.Fprintf(&b, "%d. %s (%d min)\n", i+1, p.Name, p.DurationMinutes)
	}
	b.WriteString("\nReply with the procedure number, or 0 to go back.")
	return StageChooseProcedure, b.String()
}

func (m *Machine) chooseProcedure(_ context.Context, s *Session, in Input) (Stage, string) {
	if in.HasNumber && in.Number == 0 {
		return StageMainMenu, mainMenuText
	}
	idx, ok := in.Choice(len(s.Procedures))
	if !ok {
		return StageChooseProcedure, "Procedure not found.\n\nReply with the procedure number, or 0 to go back."
	}
	chosen := s.Procedures[idx]
	s.ProcedureID = chosen.ID
	s.ProcedureName = chosen.Name
	return StageCollectName, fmt.Sprintf("✨ *%s*\n\nGreat choice! Let's book it.\n\nWhat is your full name?", chosen.Name)
}

func (m *Machine) collectName(_ context.Context, s *Session, in Input) (Stage, string) {
	name := strings.TrimSpace(in.Raw)
	if len([]rune(name)) < 3 {
		return StageCollectName, "Please provide a valid name with at least 3 characters."
	}
	s.ClientName = name
	return StageCollectPhone, fmt.Sprintf("✨ Hi %s!\n\nWhat is your contact phone?\n(Include the area code, e.g. (11) 98765-4321)", name)
}

func (m *Machine) collectPhone(ctx context.Context, s *Session, in Input) (Stage, string) {
	if len(in.Digits) < 10 {
		return StageCollectPhone, "Invalid phone. Please provide a valid number with area code."
	}
	s.ClientPhone = in.Digits

	dates, err := m.availability.CandidateDates(ctx, s.ProviderID, m.horizon)
	if err != nil {
		m.logger.Error("failed to load dates for chat", "error", err, "provider_id", s.ProviderID)
		return StageCollectPhone, msgRetry
	}
	if len(dates) == 0 {
		return StageMainMenu, fmt.Sprintf("Sorry, %s has no available dates in the next %d days.\n\n%s", s.ProviderName, m.horizon, mainMenuText)
	}
	s.Dates = dates
	return StageChooseDate, renderDates(dates)
}

func renderDates(dates []string) string {
	var b strings.Builder
	b.WriteString("📅 *Available dates*\n\n")
	for i, d := range dates {
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, d, weekdaySuffix(d))
	}
	b.WriteString("\nChoose a date by replying with its number.")
	return b.String()
}

func weekdaySuffix(date string) string {
	t, err := calendar.ParseDate(date, time.UTC)
	if err != nil {
		return ""
	}
	return " (" + t.Weekday().String()[:3] + ")"
}

func (m *Machine) chooseDate(ctx context.Context, s *Session, in Input) (Stage, string) {
	idx, ok := in.Choice(len(s.Dates))
	if !ok {
		return StageChooseDate, "Invalid date. Reply with the number of the date you want."
	}
	date := s.Dates[idx]
	times, err := m.availability.CandidateTimes(ctx, s.ProviderID, date, s.ProcedureID)
	if err != nil {
		m.logger.Error("failed to load times for chat", "error", err, "provider_id", s.ProviderID, "date", date)
		return StageChooseDate, msgRetry
	}
	if len(times) == 0 {
		return StageChooseDate, fmt.Sprintf("No times left on %s. Please choose another date.", date)
	}
	s.Date = date
	s.Times = times
	return StageChooseTime, renderTimes(date, times)
}

func renderTimes(date string, times []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ *Available times for %s*\n\n", date)
	for i, t := range times {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	b.WriteString("\nChoose a time by replying with its number.")
	return b.String()
}

func (m *Machine) chooseTime(ctx context.Context, s *Session, in Input) (Stage, string) {
	idx, ok := in.Choice(len(s.Times))
	if !ok {
		return StageChooseTime, "Invalid time. Reply with the number of the time you want."
	}
	chosen := s.Times[idx]

	a, err := m.booker.Create(ctx, appointments.CreateRequest{
		ProviderID:    s.ProviderID,
		Date:          s.Date,
		Time:          chosen,
		ClientName:    s.ClientName,
		ClientPhone:   s.ClientPhone,
		ProcedureID:   s.ProcedureID,
		ProcedureName: s.ProcedureName,
	})
	if err != nil {
		return StageChooseTime, m.bookingFailure(ctx, s, err)
	}

	var b strings.Builder
	b.WriteString("✅ *APPOINTMENT CONFIRMED!*\n\n")
	fmt.Fprintf(&b, "👤 Client: %s\n", s.ClientName)
	fmt.Fprintf(&b, "🧘‍♀️ Professional: %s\n", s.ProviderName)
	fmt.Fprintf(&b, "💅 Procedure: %s\n", s.ProcedureName)
	fmt.Fprintf(&b, "📅 Date: %s\n", s.Date)
	fmt.Fprintf(&b, "⏰ Time: %s\n\n", chosen)
	fmt.Fprintf(&b, "Booking code: %s\n\n", a.Code)
	b.WriteString("Thank you for choosing us! 💕\n\n")
	b.WriteString(mainMenuText)

	m.logger.Info("chat booking confirmed", "channel_id", s.ChannelID, "code", a.Code, "provider_id", s.ProviderID)
	s.clearBooking()
	return StageMainMenu, b.String()
}

func (m *Machine) bookingFailure(ctx context.Context, s *Session, err error) string {
	var v *appointments.ValidationError
	switch {
	case errors.As(err, &v):
		return fmt.Sprintf("Could not book: %s.\n\nPlease choose another time.", v.Reason)
	case errors.Is(err, appointments.ErrSlotTaken):
		times, terr := m.availability.CandidateTimes(ctx, s.ProviderID, s.Date, s.ProcedureID)
		if terr != nil || len(times) == 0 {
			s.Times = nil
			return "Sorry, that time was just taken and no other times are left on this date. Type restart to begin again."
		}
		s.Times = times
		return "Sorry, that time was just taken.\n\n" + renderTimes(s.Date, times)
	case errors.Is(err, appointments.ErrNotFound):
		return "Sorry, that professional or procedure is no longer available. Type restart to begin again."
	default:
		m.logger.Error("chat booking failed", "error", err, "channel_id", s.ChannelID)
		return "Sorry, we could not save your appointment. Please try another time."
	}
}
