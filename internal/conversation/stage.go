package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Stage is a step of the booking chat.
type Stage string

const (
	StageChooseProvider  Stage = "choose_provider"
	StageMainMenu        Stage = "main_menu"
	StageChooseProcedure Stage = "choose_procedure"
	StageCollectName     Stage = "collect_name"
	StageCollectPhone    Stage = "collect_phone"
	StageChooseDate      Stage = "choose_date"
	StageChooseTime      Stage = "choose_time"
)

func (s Stage) String() string { return string(s) }

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// handoffTriggers match whole words, singular or plural, so names such as
// "Adminson" do not trigger a handoff.
var handoffTriggers = map[string]struct{}{
	"human": {}, "attendant": {}, "person": {}, "someone": {},
	"manager": {}, "supervisor": {}, "admin": {}, "responsible": {},
}

var resetPhrases = map[string]struct{}{
	"restart":    {},
	"start over": {},
	"reset":      {},
}

var nonDigits = regexp.MustCompile(`\D`)

// Input is a normalized inbound chat message.
type Input struct {
	Raw       string
	Text      string
	Digits    string
	Number    int
	HasNumber bool
	Handoff   bool
	Reset     bool
}

// Normalize lower-cases and trims raw and extracts the digits it carries.
// "Option 2" and "2️⃣" both read as the number 2.
func Normalize(raw string) Input {
	in := Input{Raw: raw, Text: strings.ToLower(strings.TrimSpace(raw))}
	in.Digits = nonDigits.ReplaceAllString(in.Text, "")
	if in.Digits != "" && len(in.Digits) <= 9 {
		if n, err := strconv.Atoi(in.Digits); err == nil {
			in.Number = n
			in.HasNumber = true
		}
	}
	in.Handoff = hasHandoffWord(in.Text)
	_, in.Reset = resetPhrases[strings.Join(strings.Fields(in.Text), " ")]
	return in
}

func hasHandoffWord(text string) bool {
	words := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		if _, ok := handoffTriggers[w]; ok {
			return true
		}
		if singular, ok := strings.CutSuffix(w, "s"); ok {
			if _, ok := handoffTriggers[singular]; ok {
				return true
			}
		}
	}
	return false
}

// Choice returns the zero-based index picked from a 1-based menu of n items.
func (in Input) Choice(n int) (int, bool) {
	if !in.HasNumber || in.Number < 1 || in.Number > n {
		return 0, false
	}
	return in.Number - 1, true
}
