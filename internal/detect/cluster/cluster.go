package cluster

import (
	"math"
	"sort"

	"episplit/internal/detect"
)

const (
	// DefaultTolerance is the grouping tolerance in seconds: detections
	// within this distance of a cluster's center join it.
	DefaultTolerance = 60
	// diversityBase grows the score multiplicatively per additional
	// distinct detector kind in a cluster.
	diversityBase = 1.5
	// proximityWeight penalizes temporal spread: tighter clusters score
	// higher for the same member sum.
	proximityWeight = 0.1
	// confidenceScale converts a final score into a confidence via
	// score/(score+scale).
	confidenceScale = 50
	// confidenceCeiling caps every confidence value.
	confidenceCeiling = 0.95
	// comboBoost is applied when a cluster holds both a black-frame and a
	// silence detection, the strongest two-signal combination.
	comboBoost = 1.1
)

// Cluster is a group of raw detections judged to represent one boundary.
type Cluster struct {
	// Center is the score-weighted mean timestamp of the members.
	Center float64
	// Members holds the contributing detections, in timestamp order.
	Members []detect.Raw
	// TotalScore is the plain sum of member scores.
	TotalScore float64
	// Kinds holds the distinct detector kinds present.
	Kinds map[detect.Kind]struct{}
	// Spread is the max-min timestamp distance across members.
	Spread float64
}

// FinalScore applies the diversity bonus and the proximity term to the raw
// member score sum.
func (c *Cluster) FinalScore() float64 {
	if len(c.Members) == 0 {
		return 0
	}
	diversity := math.Pow(diversityBase, float64(len(c.Kinds)-1))
	proximity := 1.0 / (1.0 + proximityWeight*c.Spread)
	return c.TotalScore * diversity * proximity
}

// Confidence maps the final score onto (0, confidenceCeiling].
func (c *Cluster) Confidence() float64 {
	score := c.FinalScore()
	confidence := score / (score + confidenceScale)
	if c.hasKind(detect.KindBlackFrame) && c.hasKind(detect.KindSilence) {
		confidence *= comboBoost
	}
	return math.Min(confidenceCeiling, confidence)
}

func (c *Cluster) hasKind(kind detect.Kind) bool {
	_, ok := c.Kinds[kind]
	return ok
}

func (c *Cluster) add(raw detect.Raw) {
	c.Members = append(c.Members, raw)
	c.TotalScore += raw.Score
	c.Kinds[raw.Kind] = struct{}{}

	weighted := 0.0
	for _, member := range c.Members {
		weighted += member.Timestamp * member.Score
	}
	if c.TotalScore > 0 {
		c.Center = weighted / c.TotalScore
	} else {
		c.Center = c.Members[0].Timestamp
	}
	first := c.Members[0].Timestamp
	last := c.Members[len(c.Members)-1].Timestamp
	c.Spread = last - first
}

// Clusterer groups detections using a fixed tolerance.
type Clusterer struct {
	Tolerance float64
}

// New returns a clusterer with the given tolerance; non-positive values
// use DefaultTolerance.
func New(tolerance float64) *Clusterer {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Clusterer{Tolerance: tolerance}
}

// Group clusters the detections greedily in timestamp order: a detection
// joins the current cluster when it lies within the tolerance of the
// cluster's running center, otherwise it opens a new cluster. Confirming
// detections (intro matchers) are excluded.
func (c *Clusterer) Group(raws []detect.Raw) []Cluster {
	filtered := make([]detect.Raw, 0, len(raws))
	for _, raw := range raws {
		if raw.Kind.Confirming() {
			continue
		}
		filtered = append(filtered, raw)
	}
	if len(filtered) == 0 {
		return nil
	}

	// Stable ordering by timestamp, then kind, keeps grouping
	// deterministic for identical input sets.
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Timestamp != filtered[j].Timestamp {
			return filtered[i].Timestamp < filtered[j].Timestamp
		}
		return filtered[i].Kind < filtered[j].Kind
	})

	var clusters []Cluster
	current := newCluster(filtered[0])
	for _, raw := range filtered[1:] {
		if math.Abs(raw.Timestamp-current.Center) <= c.Tolerance {
			current.add(raw)
			continue
		}
		clusters = append(clusters, current)
		current = newCluster(raw)
	}
	clusters = append(clusters, current)
	return clusters
}

// Best selects the winning cluster for a window: highest final score, with
// ties broken toward clusters containing a black-frame or chapter
// detection, then toward the earlier center.
func (c *Clusterer) Best(raws []detect.Raw) (Cluster, bool) {
	clusters := c.Group(raws)
	if len(clusters) == 0 {
		return Cluster{}, false
	}
	best := clusters[0]
	for _, candidate := range clusters[1:] {
		if better(candidate, best) {
			best = candidate
		}
	}
	return best, true
}

func better(a, b Cluster) bool {
	scoreA, scoreB := a.FinalScore(), b.FinalScore()
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	reliableA := a.hasKind(detect.KindBlackFrame) || a.hasKind(detect.KindChapter)
	reliableB := b.hasKind(detect.KindBlackFrame) || b.hasKind(detect.KindChapter)
	if reliableA != reliableB {
		return reliableA
	}
	return a.Center < b.Center
}

func newCluster(raw detect.Raw) Cluster {
	cluster := Cluster{Kinds: make(map[detect.Kind]struct{})}
	cluster.add(raw)
	return cluster
}
