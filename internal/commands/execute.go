package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add      func(AddArgs) (Result, error)
	Note     func(NoteArgs) (Result, error)
	Complete func(CompleteArgs) (Result, error)
	Sync     func() (Result, error)
	Show     func(ShowArgs) (Result, error)
	Due      func(DueArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing("add")
		}
		return handlers.Add(*cmd.Add)
	case TypeNote:
		if handlers.Note == nil {
			return Result{}, missing("note")
		}
		return handlers.Note(*cmd.Note)
	case TypeComplete:
		if handlers.Complete == nil {
			return Result{}, missing("complete")
		}
		return handlers.Complete(*cmd.Complete)
	case TypeSync:
		if handlers.Sync == nil {
			return Result{}, missing("sync")
		}
		return handlers.Sync()
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing("show")
		}
		return handlers.Show(*cmd.Show)
	case TypeDue:
		if handlers.Due == nil {
			return Result{}, missing("due")
		}
		return handlers.Due(*cmd.Due)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(name string) *CommandError {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: name + " handler not configured"}
}
