// ABOUTME: Command grammar for the user-facing control surface
// ABOUTME: Parses prefix-stripped text into a small tagged variant, with silent fallthrough

package command

import "strings"

// Kind enumerates the recognized command forms.
type Kind int

const (
	// None marks text that is not a command; it flows to normal
	// conversational handling.
	None Kind = iota
	// ToggleScale flips the invoking user's mode ("scale").
	ToggleScale
	// SetEffort sets the user's reasoning budget ("effort <n>").
	SetEffort
	// Status reports the user's mode and effort ("status").
	Status
	// DeleteHistory clears the user's conversation ("delete-history").
	DeleteHistory
)

// Command is one parsed control command.
type Command struct {
	Kind Kind
	// EffortRaw carries the unparsed argument of a SetEffort command;
	// validation happens in the mode controller so the user gets a
	// proper range message for bad values.
	EffortRaw string
}

// Parse recognizes the four command forms in prefix-stripped text.
// Anything else, including near-misses with extra arguments, yields
// Kind None so ordinary punctuation never triggers a command.
func Parse(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{Kind: None}
	}

	verb := strings.ToLower(fields[0])
	switch verb {
	case "scale":
		if len(fields) == 1 {
			return Command{Kind: ToggleScale}
		}
	case "effort":
		if len(fields) == 2 {
			return Command{Kind: SetEffort, EffortRaw: fields[1]}
		}
	case "status":
		if len(fields) == 1 {
			return Command{Kind: Status}
		}
	case "delete-history":
		if len(fields) == 1 {
			return Command{Kind: DeleteHistory}
		}
	}
	return Command{Kind: None}
}
