package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spinonoir/PlantOS/internal/model"
)

type Type string

const (
	TypeAdd      Type = "add"
	TypeNote     Type = "note"
	TypeComplete Type = "complete"
	TypeSync     Type = "sync"
	TypeShow     Type = "show"
	TypeDue      Type = "due"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const (
	SubjectPlants    = "plants"
	SubjectSchedule  = "schedule"
	SubjectReminders = "reminders"
	SubjectPlant     = "plant"
)

type AddArgs struct {
	Form model.PlantForm
}

type NoteArgs struct {
	Text string
}

type CompleteArgs struct {
	// Target is a task id or a signal name of the selected plant.
	Target string
}

type ShowArgs struct {
	Subject string
	Target  string
}

type DueArgs struct {
	Minutes int
}

type Command struct {
	Type     Type
	Raw      string
	Add      *AddArgs
	Note     *NoteArgs
	Complete *CompleteArgs
	Show     *ShowArgs
	Due      *DueArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeNote:
		return parseNote(input, args)
	case TypeComplete, "done":
		return parseComplete(input, args)
	case TypeSync:
		return Command{Type: TypeSync, Raw: input}, nil
	case TypeShow:
		return parseShow(input, args)
	case TypeDue:
		return parseDue(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

// parseAdd reads "add <name> [species:<s>] [light:<l>] [water:<days>]
// [feed:<days>] [tag:<t>]...". Words after a key belong to that key until
// the next key; tags take a single word.
func parseAdd(raw string, args []string) (Command, error) {
	var (
		nameParts []string
		key       string
		values    = map[string][]string{}
		tags      []string
	)
	for _, arg := range args {
		if k, v, ok := splitKey(arg); ok {
			if k == "tag" {
				tags = append(tags, v)
				key = ""
				continue
			}
			key = k
			values[k] = append(values[k], v)
			continue
		}
		if key == "" {
			nameParts = append(nameParts, arg)
			continue
		}
		values[key] = append(values[key], arg)
	}

	form := model.PlantForm{
		Name:    strings.TrimSpace(strings.Join(nameParts, " ")),
		Species: strings.TrimSpace(strings.Join(values["species"], " ")),
		Notes:   strings.TrimSpace(strings.Join(values["notes"], " ")),
		Tags:    tags,
	}
	if form.Name == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a plant name"}
	}
	if light := strings.Join(values["light"], ""); light != "" {
		level, err := model.ParseLightLevel(light)
		if err != nil {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "light must be low, medium or high"}
		}
		form.LightLevel = level
	}
	for k, dst := range map[string]*int{"water": &form.WateringIntervalDays, "feed": &form.FeedingIntervalDays} {
		v := strings.Join(values[k], "")
		if v == "" {
			continue
		}
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s must be a positive number of days", k)}
		}
		*dst = days
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Form: form}}, nil
}

var addKeys = map[string]bool{"species": true, "light": true, "water": true, "feed": true, "tag": true, "notes": true}

func splitKey(arg string) (string, string, bool) {
	idx := strings.Index(arg, ":")
	if idx <= 0 {
		return "", "", false
	}
	k := strings.ToLower(arg[:idx])
	if !addKeys[k] {
		return "", "", false
	}
	return k, arg[idx+1:], true
}

func parseNote(raw string, args []string) (Command, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "note requires text"}
	}
	return Command{Type: TypeNote, Raw: raw, Note: &NoteArgs{Text: text}}, nil
}

func parseComplete(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "complete requires a task id or signal"}
	}
	return Command{Type: TypeComplete, Raw: raw, Complete: &CompleteArgs{Target: args[0]}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show requires a subject"}
	}
	subject := strings.ToLower(args[0])
	switch subject {
	case SubjectPlants, SubjectSchedule, SubjectReminders:
		return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject}}, nil
	case SubjectPlant:
		target := strings.TrimSpace(strings.Join(args[1:], " "))
		if target == "" {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show plant requires an id or name"}
		}
		return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject, Target: target}}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("cannot show %q", subject)}
	}
}

func parseDue(raw string, args []string) (Command, error) {
	minutes := 0
	if len(args) > 0 {
		v, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(args[0]), "m"))
		if err != nil || v <= 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "due window must be a positive number of minutes"}
		}
		minutes = v
	}
	return Command{Type: TypeDue, Raw: raw, Due: &DueArgs{Minutes: minutes}}, nil
}
