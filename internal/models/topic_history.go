package models

// TopicHistoryID is the key of the single persisted topic history record
const TopicHistoryID = "used_topics"

// DefaultTopicCapacity is the number of previously used topics kept for ideation
const DefaultTopicCapacity = 20

// MaxTopicCapacity bounds the ring buffer
const MaxTopicCapacity = 50

// TopicHistory is a bounded ring buffer of previously used topics, oldest first.
type TopicHistory struct {
	ID       string   `json:"id" badgerhold:"key"`
	Capacity int      `json:"capacity"`
	Topics   []string `json:"topics"`
}

// NewTopicHistory creates an empty history. Capacity is clamped to [1, MaxTopicCapacity].
func NewTopicHistory(capacity int) *TopicHistory {
	h := &TopicHistory{ID: TopicHistoryID}
	h.SetCapacity(capacity)
	return h
}

// SetCapacity changes the bound and drops the oldest entries beyond it
func (h *TopicHistory) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = DefaultTopicCapacity
	}
	if capacity > MaxTopicCapacity {
		capacity = MaxTopicCapacity
	}
	h.Capacity = capacity
	h.trim()
}

// Add appends a topic, evicting the oldest when full. Blank topics are ignored.
func (h *TopicHistory) Add(topic string) {
	if topic == "" {
		return
	}
	h.Topics = append(h.Topics, topic)
	h.trim()
}

// Recent returns the stored topics, oldest first
func (h *TopicHistory) Recent() []string {
	out := make([]string, len(h.Topics))
	copy(out, h.Topics)
	return out
}

func (h *TopicHistory) trim() {
	if h.Capacity > 0 && len(h.Topics) > h.Capacity {
		h.Topics = append([]string(nil), h.Topics[len(h.Topics)-h.Capacity:]...)
	}
}
