package linewire

import (
	"errors"
	"fmt"

	"linewire/dataline"
)

// ReplyTag names the error replies a server sends instead of a regular
// response line. The first field carries the message.
type ReplyTag int

const (
	TagError ReplyTag = iota
	TagClientError
	TagServerError
)

var replyTags = []ReplyTag{TagError, TagClientError, TagServerError}

func (t ReplyTag) String() string {
	switch t {
	case TagError:
		return "ERROR"
	case TagClientError:
		return "CLIENT_ERROR"
	case TagServerError:
		return "SERVER_ERROR"
	}
	return fmt.Sprintf("ReplyTag(%d)", int(t))
}

var (
	ErrClientError = errors.New("linewire client error")
	ErrServerError = errors.New("linewire server error")
	ErrGenError    = errors.New("linewire error")
	ErrBadResponse = errors.New("bad linewire response")
)

func (t ReplyTag) err() error {
	switch t {
	case TagClientError:
		return ErrClientError
	case TagServerError:
		return ErrServerError
	}
	return ErrGenError
}

// ErrorReply builds the error line for tag.
func ErrorReply(tag ReplyTag, msg string) *dataline.Line {
	return dataline.NewTagged(tag).Add(msg)
}

func maybeError(reply *dataline.Line) error {
	tag, ok := dataline.ToType(reply, replyTags...)
	if !ok {
		return nil
	}
	msg, err := reply.Field(0)
	if err != nil {
		return tag.err()
	}
	return fmt.Errorf("%w: %s", tag.err(), msg)
}

// HandlerFunc answers one request line. A returned error is sent to the
// peer as a SERVER_ERROR reply, or as the reply of an *ReplyError.
type HandlerFunc func(req *dataline.Line, handlerID uint64) (*dataline.Line, error)

// ReplyError lets a HandlerFunc choose the error reply tag.
type ReplyError struct {
	Tag ReplyTag
	Msg string
}

func (e *ReplyError) Error() string {
	return e.Tag.String() + ": " + e.Msg
}

// Process makes f usable as a gonet.Processor.
func (f HandlerFunc) Process(data string, handlerID uint64) string {
	resp, err := f(dataline.New(data), handlerID)
	if err != nil {
		var re *ReplyError
		if errors.As(err, &re) {
			return ErrorReply(re.Tag, re.Msg).String()
		}
		return ErrorReply(TagServerError, err.Error()).String()
	}
	if resp == nil {
		return ""
	}
	return resp.String()
}
