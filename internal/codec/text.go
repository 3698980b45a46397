package codec

import (
	"strings"
	"time"

	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/pkg/exception"

	"github.com/google/uuid"
)

// textNamespace seeds the name-based event ids of text frames, which carry no id of their own.
var textNamespace = uuid.MustParse("8a4e5d0c-5b7f-4f6e-9c43-2f1d3b6a7e90")

// TextDecoder decodes delimited text frames:
//
//	<event_type>:<code>.<venue>,<order_id>[,<field>...]
//
// Text frames carry no envelope. The event id is derived from the frame bytes and the
// event timestamp comes from the decoder clock.
type TextDecoder struct {
	now func() time.Time
}

// NewTextDecoder creates a decoder stamping events with now. A nil now uses time.Now.
func NewTextDecoder(now func() time.Time) *TextDecoder {
	if now == nil {
		now = time.Now
	}
	return &TextDecoder{now: now}
}

var defaultTextDecoder = NewTextDecoder(nil)

// DecodeText decodes line with the wall clock as event timestamp.
func DecodeText(line string) (model.Event, error) {
	return defaultTextDecoder.Decode(line)
}

// Decode parses one text frame.
func (d *TextDecoder) Decode(line string) (model.Event, error) {
	line = strings.TrimRight(line, "\r\n")
	tag, rest, hasBody := strings.Cut(line, ":")
	kind, ok := enum.ParseEventKind(tag)
	if !ok {
		return nil, &FieldError{Field: keyEventType, Value: tag, Err: exception.ErrUnknownEventType}
	}

	var tokens []string
	if hasBody {
		tokens = strings.Split(rest, ",")
	}
	layout := layoutOf(kind)
	if expected := 2 + len(layout); len(tokens) != expected {
		return nil, &FieldCountError{Kind: kind, Expected: expected, Actual: len(tokens)}
	}

	raw := make(map[string]any, len(tokens))
	raw[keySymbol] = tokens[0]
	raw[keyOrderID] = tokens[1]
	for i, key := range layout {
		raw[key] = tokens[i+2]
	}

	f := &fields{raw: raw}
	h := model.EventHeader{
		EventID:        uuid.NewSHA1(textNamespace, []byte(line)),
		EventTimestamp: d.now().UTC(),
		Symbol:         f.symbol(keySymbol),
		OrderID:        f.str(keyOrderID),
	}
	if f.err != nil {
		return nil, f.err
	}
	if err := h.Validate(); err != nil {
		return nil, &FieldError{Field: keyOrderID, Value: h.OrderID, Err: err}
	}

	return build(kind, h, f)
}

// EncodeText renders e as a text frame. Field values must not contain ','.
func EncodeText(e model.Event) (string, error) {
	if e == nil {
		return "", exception.ErrNilInstance
	}
	m := map[string]any{}
	model.Visit(e, binaryFields(m))

	h := e.Header()
	if strings.ContainsRune(h.OrderID, ',') {
		return "", &FieldError{Field: keyOrderID, Value: h.OrderID, Err: exception.ErrMalformedEvent}
	}
	var sb strings.Builder
	sb.WriteString(e.Kind().String())
	sb.WriteByte(':')
	sb.WriteString(strings.ToLower(h.Symbol.String()))
	sb.WriteByte(',')
	sb.WriteString(h.OrderID)
	for _, key := range layoutOf(e.Kind()) {
		s, _ := scalarString(m[key])
		if strings.ContainsRune(s, ',') {
			return "", &FieldError{Field: key, Value: s, Err: exception.ErrMalformedEvent}
		}
		sb.WriteByte(',')
		sb.WriteString(s)
	}
	return sb.String(), nil
}
