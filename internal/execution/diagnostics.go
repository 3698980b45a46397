package execution

import (
	"fmt"

	"execgate/internal/model"
	"execgate/internal/transport"

	"github.com/yanun0323/logs"
)

// DiagnosticKind decode failure, unroutable, dropped, journal failure, record failure
type DiagnosticKind uint8

const (
	_diagnostic_kind_beg DiagnosticKind = iota
	DiagnosticDecodeFailure
	DiagnosticUnroutable
	DiagnosticDropped
	DiagnosticJournalFailure
	DiagnosticRecordFailure
	_diagnostic_kind_end
)

func (k DiagnosticKind) IsAvailable() bool {
	return k > _diagnostic_kind_beg && k < _diagnostic_kind_end
}

func (k DiagnosticKind) String() string {
	switch k {
	case DiagnosticDecodeFailure:
		return "decode_failure"
	case DiagnosticUnroutable:
		return "unroutable"
	case DiagnosticDropped:
		return "dropped"
	case DiagnosticJournalFailure:
		return "journal_failure"
	case DiagnosticRecordFailure:
		return "record_failure"
	default:
		return "unknown"
	}
}

// Diagnostic describes a frame or event the client could not deliver.
// Event is set once decoding succeeded; Frame is set when the frame came through the live client.
type Diagnostic struct {
	Kind  DiagnosticKind
	Err   error
	Event model.Event
	Frame transport.Frame
}

func (d Diagnostic) String() string {
	switch {
	case d.Event != nil:
		h := d.Event.Header()
		return fmt.Sprintf("%s %s order %s event %s: %v", d.Kind, d.Event.Kind(), h.OrderID, h.EventID, d.Err)
	case d.Frame.Channel != "" || len(d.Frame.Payload) > 0:
		return fmt.Sprintf("%s frame %d from %s (%s, %d bytes): %v", d.Kind, d.Frame.Seq, d.Frame.Channel, d.Frame.Encoding, len(d.Frame.Payload), d.Err)
	default:
		return fmt.Sprintf("%s: %v", d.Kind, d.Err)
	}
}

// Diagnostics receives non-fatal delivery problems. Report must not block.
type Diagnostics interface {
	Report(d Diagnostic)
}

type DiagnosticsFunc func(d Diagnostic)

func (f DiagnosticsFunc) Report(d Diagnostic) {
	f(d)
}

// LogDiagnostics writes every diagnostic to the error log.
type LogDiagnostics struct{}

func (LogDiagnostics) Report(d Diagnostic) {
	logs.Errorf("execution: %s", d)
}

// MultiDiagnostics fans a diagnostic out to every sink in order.
type MultiDiagnostics []Diagnostics

func (m MultiDiagnostics) Report(d Diagnostic) {
	for _, sink := range m {
		if sink != nil {
			sink.Report(d)
		}
	}
}
