package stream

import "strings"

// DraftToolCall is a tool call being reassembled from streamed fragments.
type DraftToolCall struct {
	ID   string
	Name string

	args strings.Builder
}

// Append adds an arguments fragment.
func (d *DraftToolCall) Append(fragment string) {
	d.args.WriteString(fragment)
}

// Arguments returns the fragments seen so far, concatenated in arrival order.
func (d *DraftToolCall) Arguments() string {
	return d.args.String()
}

// drafts holds the tool calls of one stream. Continuation fragments carry no
// id, so they belong to the most recently started call.
type drafts struct {
	calls     []*DraftToolCall
	current   int
	processed map[string]bool
}

func newDrafts() *drafts {
	return &drafts{current: -1, processed: make(map[string]bool)}
}

// start opens a new call and makes it current.
func (d *drafts) start(id, name, fragment string) {
	call := &DraftToolCall{ID: id, Name: name}
	call.Append(fragment)
	d.calls = append(d.calls, call)
	d.current = len(d.calls) - 1
}

// extend appends to the current call. It reports false if no call is open.
func (d *drafts) extend(fragment string) bool {
	if d.current < 0 {
		return false
	}
	d.calls[d.current].Append(fragment)
	return true
}

// pending returns the current call if it has not been processed yet.
func (d *drafts) pending() (*DraftToolCall, bool) {
	if d.current < 0 {
		return nil, false
	}
	call := d.calls[d.current]
	if d.processed[call.ID] {
		return nil, false
	}
	return call, true
}

func (d *drafts) markProcessed(id string) {
	d.processed[id] = true
}
