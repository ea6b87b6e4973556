package ops

import (
	"github.com/hpungsan/nudge/internal/digest"
)

// ComposeInput contains parameters for the Compose operation.
type ComposeInput struct {
	// Items are the raw field sets produced by collectors this cycle.
	Items []digest.Fields
}

// ComposeOutput contains the result of the Compose operation.
type ComposeOutput struct {
	Items []*digest.Item `json:"items"`

	// Discarded counts inputs suppressed by deduplication.
	Discarded int `json:"discarded"`
}

// Compose validates and constructs digest items from collector outputs,
// then deduplicates items describing the same real-world event. Any
// invalid field set fails the whole compose: a digest is never partially
// built from rejected inputs.
func Compose(input ComposeInput) (*ComposeOutput, error) {
	items := make([]*digest.Item, 0, len(input.Items))
	for _, f := range input.Items {
		item, err := digest.New(f)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	deduped := digest.Deduplicate(items)
	return &ComposeOutput{
		Items:     deduped,
		Discarded: len(items) - len(deduped),
	}, nil
}
