package tuner

import (
	"math"
	"sync"
	"time"
)

/*
 * Global constants.
 */
const (
	AcceptCents = 50
	LockCents   = 5
	LockHold    = 2000 * time.Millisecond
)

/*
 * Data structure representing a reference pitch.
 */
type Reference struct {
	Name      string
	Frequency float64
}

/*
 * Data structure representing the tuning state of a single reference pitch.
 */
type StringStatus struct {
	Reference Reference
	Locked    bool
}

/*
 * Data structure representing one published tuning reading.
 *
 * JustLocked is only set on the reading that performed the lock transition.
 */
type Reading struct {
	Reference  Reference
	Frequency  float64
	Cents      int
	Locked     bool
	JustLocked bool
}

/*
 * Data structure representing a tuning tracker.
 */
type Tracker struct {
	mutex      sync.Mutex
	references []Reference
	current    string
	holding    bool
	holdStart  time.Time
	locked     map[string]bool
}

/*
 * Generates the reference pitches of a guitar in standard tuning, lowest
 * string first.
 *
 * f(n) = 2^(n / 12) * 440
 *
 * Where n is the number of half-tone steps relative to A4.
 */
func StandardTuning() []Reference {

	/*
	 * Create a list of the open strings.
	 */
	references := []Reference{
		{
			Name:      "E2",
			Frequency: 82.4069,
		},
		{
			Name:      "A2",
			Frequency: 110.0000,
		},
		{
			Name:      "D3",
			Frequency: 146.8324,
		},
		{
			Name:      "G3",
			Frequency: 195.9978,
		},
		{
			Name:      "B3",
			Frequency: 246.9417,
		},
		{
			Name:      "E4",
			Frequency: 329.6276,
		},
	}

	return references
}

/*
 * Returns the deviation of a frequency from a reference in cents.
 */
func Cents(frequency float64, reference float64) float64 {
	return 1200.0 * math.Log2(frequency/reference)
}

/*
 * Find the reference closest to a frequency in hertz.
 *
 * Ties are resolved in favour of the reference defined first.
 */
func nearest(references []Reference, frequency float64) (Reference, bool) {
	best := Reference{}
	bestDist := math.Inf(1)
	found := false

	for _, ref := range references {
		dist := math.Abs(frequency - ref.Frequency)

		/*
		 * Only a strictly closer reference replaces the current candidate.
		 */
		if dist < bestDist {
			best = ref
			bestDist = dist
			found = true
		}

	}

	return best, found
}

/*
 * Map a smoothed frequency to the nearest reference and track sustained
 * in-tune holds.
 *
 * Returns false when the frequency is more than AcceptCents away from its
 * nearest reference.
 */
func (this *Tracker) Update(frequency float64, now time.Time) (Reading, bool) {

	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return Reading{}, false
	}

	this.mutex.Lock()
	defer this.mutex.Unlock()
	ref, ok := nearest(this.references, frequency)

	if !ok {
		return Reading{}, false
	}

	cents := int(math.Round(Cents(frequency, ref.Frequency)))

	/*
	 * Frequencies off the chart (harmonics, noise) are no match at all and
	 * interrupt any hold in progress.
	 */
	if cents > AcceptCents || cents < -AcceptCents {
		this.forget()
		return Reading{}, false
	}

	if ref.Name != this.current {
		this.current = ref.Name
		this.holding = false
	}

	justLocked := false

	if cents > LockCents || cents < -LockCents {
		this.holding = false
	} else if !this.holding {
		this.holding = true
		this.holdStart = now
	} else if !this.locked[ref.Name] && now.Sub(this.holdStart) >= LockHold {
		this.locked[ref.Name] = true
		justLocked = true
	}

	reading := Reading{
		Reference:  ref,
		Frequency:  frequency,
		Cents:      cents,
		Locked:     this.locked[ref.Name],
		JustLocked: justLocked,
	}

	return reading, true
}

/*
 * Forget the current match after a gap in the signal, so that the next
 * match starts a fresh hold. Locks are kept.
 */
func (this *Tracker) Lost() {
	this.mutex.Lock()
	this.forget()
	this.mutex.Unlock()
}

func (this *Tracker) forget() {
	this.current = ""
	this.holding = false
}

/*
 * Reports whether a reference has been locked in this session.
 */
func (this *Tracker) Locked(name string) bool {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.locked[name]
}

/*
 * Returns a snapshot of the lock state of every reference, in definition
 * order.
 */
func (this *Tracker) Strings() []StringStatus {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	result := make([]StringStatus, len(this.references))

	for i, ref := range this.references {
		result[i] = StringStatus{
			Reference: ref,
			Locked:    this.locked[ref.Name],
		}
	}

	return result
}

/*
 * Clears all locks. Only meant for starting a new session.
 */
func (this *Tracker) Reset() {
	this.mutex.Lock()
	this.forget()
	this.locked = make(map[string]bool)
	this.mutex.Unlock()
}

/*
 * Creates a tuning tracker for the given references, or for standard tuning
 * if none are given.
 */
func NewTracker(references ...Reference) *Tracker {

	if len(references) == 0 {
		references = StandardTuning()
	}

	refs := make([]Reference, len(references))
	copy(refs, references)

	t := Tracker{
		references: refs,
		locked:     make(map[string]bool),
	}

	return &t
}
