package strips

import (
	"sync"
	"testing"
	"time"
)

type emitRecorder struct {
	mu    sync.Mutex
	emits []struct {
		flightID, field string
		value           interface{}
	}
}

func (recorder *emitRecorder) emit(flightID, field string, value interface{}) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.emits = append(recorder.emits, struct {
		flightID, field string
		value           interface{}
	}{flightID, field, value})
}

func (recorder *emitRecorder) count() int {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return len(recorder.emits)
}

func (recorder *emitRecorder) last() (string, string, interface{}) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	e := recorder.emits[len(recorder.emits)-1]
	return e.flightID, e.field, e.value
}

func TestDebounceCoalescesKeystrokes(t *testing.T) {
	recorder := &emitRecorder{}
	debouncer := NewDebouncer(20*time.Millisecond, recorder.emit)
	defer debouncer.Close()

	debouncer.OnLocalChange("1", "callsign", "A")
	debouncer.OnLocalChange("1", "callsign", "AB")
	debouncer.OnLocalChange("1", "callsign", "ABC")

	time.Sleep(60 * time.Millisecond)

	if recorder.count() != 1 {
		t.Fatalf("emitted %d updates; rapid keystrokes must coalesce to 1", recorder.count())
	}
	if _, _, value := recorder.last(); value != "ABC" {
		t.Errorf("emitted %v; expected the latest value", value)
	}
}

func TestDebounceFieldsAreIndependent(t *testing.T) {
	recorder := &emitRecorder{}
	debouncer := NewDebouncer(20*time.Millisecond, recorder.emit)
	defer debouncer.Close()

	debouncer.OnLocalChange("1", "runway", "35L")
	debouncer.OnLocalChange("1", "squawk", "4201")

	time.Sleep(60 * time.Millisecond)

	if recorder.count() != 2 {
		t.Errorf("emitted %d updates; different fields must emit independently", recorder.count())
	}
}

func TestDebounceEmitNowSkipsQuietPeriod(t *testing.T) {
	recorder := &emitRecorder{}
	debouncer := NewDebouncer(time.Minute, recorder.emit)
	defer debouncer.Close()

	// A checkbox toggle has no typing to coalesce.
	debouncer.OnLocalChange("1", "cleared", false)
	debouncer.EmitNow("1", "cleared", true)

	if recorder.count() != 1 {
		t.Fatalf("emitted %d updates; expected immediate emit", recorder.count())
	}
	if debouncer.Pending("1", "cleared") {
		t.Error("immediate emit left the debounce timer armed")
	}
}

// Scenario D: a delete racing a debounce window must not resurrect the record.
func TestDebounceCancelFlight(t *testing.T) {
	recorder := &emitRecorder{}
	debouncer := NewDebouncer(20*time.Millisecond, recorder.emit)
	defer debouncer.Close()

	debouncer.OnLocalChange("1", "remark", "taxi via B")
	debouncer.CancelFlight("1")

	time.Sleep(60 * time.Millisecond)

	if recorder.count() != 0 {
		t.Errorf("emitted %d updates after cancel; expected none", recorder.count())
	}
}

func TestDebounceCloseStopsTimers(t *testing.T) {
	recorder := &emitRecorder{}
	debouncer := NewDebouncer(20*time.Millisecond, recorder.emit)

	debouncer.OnLocalChange("1", "remark", "stand 21")
	debouncer.Close()
	debouncer.OnLocalChange("1", "runway", "35L")

	time.Sleep(60 * time.Millisecond)

	if recorder.count() != 0 {
		t.Errorf("emitted %d updates after close; expected none", recorder.count())
	}
}
