package gonet

// Processor handles one line read by a Handler and returns the response.
// The response is written back only in ModeServe; other modes discard it.
// data is never the end-of-stream marker. Implementations shared between
// handlers must do their own locking.
type Processor interface {
	Process(data string, handlerID uint64) string
}

type ProcessorFunc func(data string, handlerID uint64) string

func (f ProcessorFunc) Process(data string, handlerID uint64) string {
	return f(data, handlerID)
}

// ShutdownListener is called once by a running Handler right before it
// releases its connection, whether it stopped on purpose or on error.
// A panic in HandlerClosing is recovered and logged.
type ShutdownListener interface {
	HandlerClosing(h *Handler)
}

type ShutdownFunc func(h *Handler)

func (f ShutdownFunc) HandlerClosing(h *Handler) {
	f(h)
}
