package chat

import (
	"encoding/json"
	"fmt"
)

// Command is an inbound chat frame. The concrete types below are the
// only implementations; Manager.Dispatch switches over all of them.
type Command interface {
	command()
}

type (
	TextCommand struct {
		Content string
	}
	AudioCommand struct {
		Data string
	}
	MeetingAudioCommand struct {
		Data string
	}
	StartListeningCommand struct{}
	StopListeningCommand  struct{}
	ClearCommand          struct{}
)

func (TextCommand) command()           {}
func (AudioCommand) command()          {}
func (MeetingAudioCommand) command()   {}
func (StartListeningCommand) command() {}
func (StopListeningCommand) command()  {}
func (ClearCommand) command()          {}

// DecodeCommand parses one JSON frame. A frame without a type is a text
// message.
func DecodeCommand(data []byte) (Command, error) {
	var env struct {
		Type    string `json:"type"`
		Content string `json:"content"`
		Data    string `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCommand, err)
	}

	switch env.Type {
	case "", "text":
		return TextCommand{Content: env.Content}, nil
	case "audio":
		return AudioCommand{Data: env.Data}, nil
	case "meeting_audio":
		return MeetingAudioCommand{Data: env.Data}, nil
	case "start_listening":
		return StartListeningCommand{}, nil
	case "stop_listening":
		return StopListeningCommand{}, nil
	case "clear":
		return ClearCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}
}
