package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory_PushSkipsRepeats(t *testing.T) {
	h := NewHistory(10)
	h.Push("ls")
	h.Push("ls")
	h.Push("help")
	h.Push("ls")
	assert.Equal(t, []string{"ls", "help", "ls"}, h.Entries())
}

func TestHistory_Bounded(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(fmt.Sprintf("cmd%d", i))
	}
	assert.Equal(t, []string{"cmd2", "cmd3", "cmd4"}, h.Entries())
	assert.Equal(t, 3, h.Len())
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(0)
	assert.Zero(t, h.Len())
	assert.Empty(t, h.Last(5))
	assert.Empty(t, h.Entries())
	assert.Equal(t, DefaultHistorySize, h.size)
}

func TestHistory_Last(t *testing.T) {
	h := NewHistory(10, "a", "b", "c", "d")
	assert.Equal(t, []string{"c", "d"}, h.Last(2))
	assert.Equal(t, []string{"a", "b", "c", "d"}, h.Last(0))
	assert.Equal(t, []string{"a", "b", "c", "d"}, h.Last(99))
}

func TestState_PromptAndQualify(t *testing.T) {
	var st State
	assert.Equal(t, "\r\n$", st.Prompt())
	assert.Equal(t, "get foo", st.Qualify("  get foo "))

	st.Context = "redis"
	assert.Equal(t, "\r\n[redis]$", st.Prompt())
	assert.Equal(t, "redis-get foo", st.Qualify("get foo"))
	assert.Equal(t, "", st.Qualify("   "))
}

func TestState_Remember(t *testing.T) {
	var st State
	for i := 0; i < DefaultHistorySize+5; i++ {
		st.Remember(fmt.Sprintf("echo %d", i))
	}
	st.Remember(fmt.Sprintf("echo %d", DefaultHistorySize+4))
	assert.Len(t, st.History, DefaultHistorySize)
	assert.Equal(t, "echo 5", st.History[0])
}
