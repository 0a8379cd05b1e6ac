package supervisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifierCoalescesRedundantNotifies(t *testing.T) {
	n := NewNotifier()
	n.Notify()
	n.Notify()
	n.Notify()

	select {
	case <-n.C():
	default:
		require.Fail(t, "expected a pending notification")
	}

	select {
	case <-n.C():
		require.Fail(t, "expected redundant notifications to be coalesced")
	default:
	}
}
