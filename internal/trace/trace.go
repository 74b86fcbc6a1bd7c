// Package trace writes playback events as JSON lines.
//
// Each line is one object:
//
//	{"seq":1,"time":"...","event":"session_started","session":"...","slot":0}
//	{"seq":2,"time":"...","event":"key","session":"...","slot":0,"key":4,"key_name":"A"}
//	{"seq":3,"time":"...","event":"session_finished","session":"...","slot":0,"reason":"terminator","keys":1,"dropped":0}
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/keymacro/internal/app"
)

// ErrInvalidRecord indicates a trace line that is not a JSON object.
var ErrInvalidRecord = errors.New("invalid trace record")

// Writer is an app.Output that writes one JSON line per event.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	seq uint64
	err error
}

// NewWriter creates a trace writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Emit writes ev. After the first write error all events are discarded and
// the error is reported by Err.
func (t *Writer) Emit(ev app.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil {
		return
	}
	t.seq++
	line, err := Encode(t.seq, ev)
	if err != nil {
		t.err = err
		return
	}
	if _, err := t.w.Write(append(line, '\n')); err != nil {
		t.err = err
	}
}

// Err returns the first encode or write error.
func (t *Writer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

type field struct {
	path  string
	value any
}

// Encode renders ev as a single JSON object without a trailing newline.
func Encode(seq uint64, ev app.Event) ([]byte, error) {
	fields := []field{
		{"seq", seq},
		{"time", ev.Time.UTC().Format(time.RFC3339Nano)},
		{"event", ev.Kind.String()},
		{"session", ev.Session.ID},
		{"slot", ev.Session.Slot},
	}

	switch ev.Kind {
	case app.EventKey:
		fields = append(fields,
			field{"key", uint8(ev.Key)},
			field{"key_name", ev.Key.String()},
		)
	case app.EventSessionFinished:
		fields = append(fields,
			field{"reason", ev.Reason.String()},
			field{"keys", ev.Session.Keys},
			field{"dropped", ev.Session.Dropped},
		)
	}

	out := []byte("{}")
	for _, f := range fields {
		var err error
		out, err = sjson.SetBytes(out, f.path, f.value)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.path, err)
		}
	}
	return out, nil
}

// Record is one decoded trace line.
type Record struct {
	Seq     uint64
	Time    time.Time
	Event   string
	Session string
	Slot    int
	Key     uint8
	KeyName string
	Reason  string
	Keys    int
	Dropped int
}

// Decode parses one trace line.
func Decode(line []byte) (Record, error) {
	if !gjson.ValidBytes(line) {
		return Record{}, ErrInvalidRecord
	}
	res := gjson.ParseBytes(line)
	if !res.IsObject() {
		return Record{}, ErrInvalidRecord
	}

	rec := Record{
		Seq:     res.Get("seq").Uint(),
		Event:   res.Get("event").String(),
		Session: res.Get("session").String(),
		Slot:    int(res.Get("slot").Int()),
		Key:     uint8(res.Get("key").Uint()),
		KeyName: res.Get("key_name").String(),
		Reason:  res.Get("reason").String(),
		Keys:    int(res.Get("keys").Int()),
		Dropped: int(res.Get("dropped").Int()),
	}
	if ts := res.Get("time"); ts.Exists() {
		t, err := time.Parse(time.RFC3339Nano, ts.String())
		if err != nil {
			return Record{}, fmt.Errorf("%w: time: %v", ErrInvalidRecord, err)
		}
		rec.Time = t
	}
	return rec, nil
}

// ReadAll decodes every non-empty line of r.
func ReadAll(r io.Reader) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := Decode(line)
		if err != nil {
			return out, fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
