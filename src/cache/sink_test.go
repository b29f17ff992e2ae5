package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"copyexecutor/src/protocol"
)

type recordingInvalidator struct {
	keys []string
}

func (r *recordingInvalidator) Invalidate(keys ...string) {
	r.keys = append(r.keys, keys...)
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(level, message string) {
	r.messages = append(r.messages, level+": "+message)
}

func TestSinkInvalidationKeys(t *testing.T) {
	cases := []struct {
		event    string
		wantKeys []string
		notifies bool
	}{
		{protocol.TypePositionUpdate, []string{KeyPortfolio, KeyPortfolioPositions}, false},
		{protocol.TypePositionOpened, []string{KeyPortfolio, KeyPortfolioPositions}, true},
		{protocol.TypePositionClosed, []string{KeyPortfolio, KeyPortfolioPositions}, true},
		{protocol.TypeCopyUpdated, []string{KeyCopies}, false},
	}
	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			invalidator := &recordingInvalidator{}
			notifier := &recordingNotifier{}
			sink := NewSink(invalidator, notifier)

			sink.Handle(&protocol.Inbound{Type: tc.event})

			assert.Equal(t, tc.wantKeys, invalidator.keys)
			if tc.notifies {
				assert.Len(t, notifier.messages, 1)
			} else {
				assert.Empty(t, notifier.messages)
			}
		})
	}
}

func TestSinkIgnoresUnknownEvents(t *testing.T) {
	invalidator := &recordingInvalidator{}
	sink := NewSink(invalidator, nil)

	sink.Handle(&protocol.Inbound{Type: "balance_changed"})

	assert.Empty(t, invalidator.keys)
}

func TestSinkWithoutNotifier(t *testing.T) {
	invalidator := &recordingInvalidator{}
	sink := NewSink(invalidator, nil)

	sink.Handle(&protocol.Inbound{Type: protocol.TypePositionOpened})

	assert.Equal(t, []string{KeyPortfolio, KeyPortfolioPositions}, invalidator.keys)
}
