package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryAppendLeavesReceiverUnchanged(t *testing.T) {
	h0 := History{}
	h1 := h0.Append(Exchange{Question: "q1", Answer: "No"})
	h2a := h1.Append(Exchange{Question: "q2a", Answer: "Yes"})
	h2b := h1.Append(Exchange{Question: "q2b", Answer: "DONE"})

	assert.Equal(t, 0, h0.Len())
	assert.Equal(t, 1, h1.Len())
	assert.Equal(t, "q2a", h2a.Exchanges()[1].Question)
	assert.Equal(t, "q2b", h2b.Exchanges()[1].Question)

	last, ok := h2b.Last()
	assert.True(t, ok)
	assert.Equal(t, "DONE", last.Answer)
	_, ok = h0.Last()
	assert.False(t, ok)
}

func TestHistoryExchangesReturnsCopy(t *testing.T) {
	h := NewHistory(Exchange{Question: "q1", Answer: "No"})
	ex := h.Exchanges()
	ex[0].Answer = "DONE"
	assert.Equal(t, "No", h.Exchanges()[0].Answer)
}
