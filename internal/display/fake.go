package display

// TimeCall records one ShowBinaryTime invocation.
type TimeCall struct {
	Hour      int
	Minute    int
	Second    int
	Use12Hour bool
}

// Fake records render calls for test assertions.
type Fake struct {
	Times    []TimeCall
	Patterns []Pattern
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{}
}

// ShowBinaryTime records the call.
func (f *Fake) ShowBinaryTime(hour, minute, second int, use12Hour bool) {
	f.Times = append(f.Times, TimeCall{Hour: hour, Minute: minute, Second: second, Use12Hour: use12Hour})
}

// ShowPattern records the call.
func (f *Fake) ShowPattern(p Pattern) {
	f.Patterns = append(f.Patterns, p)
}

// LastTime returns the most recent time render.
func (f *Fake) LastTime() (TimeCall, bool) {
	if len(f.Times) == 0 {
		return TimeCall{}, false
	}
	return f.Times[len(f.Times)-1], true
}

// LastPattern returns the most recent pattern render.
func (f *Fake) LastPattern() (Pattern, bool) {
	if len(f.Patterns) == 0 {
		return "", false
	}
	return f.Patterns[len(f.Patterns)-1], true
}

// Reset clears the recorded calls.
func (f *Fake) Reset() {
	f.Times = nil
	f.Patterns = nil
}
