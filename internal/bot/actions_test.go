package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		data string
		want Action
	}{
		{"check_subscription", Action{Kind: ActionCheckSubscription}},
		{"admin_stats", Action{Kind: ActionAdminStats}},
		{"admin_withdrawals", Action{Kind: ActionAdminWithdrawals}},
		{"admin_broadcast", Action{Kind: ActionAdminBroadcast}},
		{"withdraw_paid:7", Action{Kind: ActionWithdrawPaid, RequestID: 7}},
		{"withdraw_rejected:7", Action{Kind: ActionWithdrawRejected, RequestID: 7}},
		{"block_user:42", Action{Kind: ActionBlockUser, AccountID: 42}},
		{"block_user:42:7", Action{Kind: ActionBlockUser, AccountID: 42, RequestID: 7}},
		{"unblock_user:42:7", Action{Kind: ActionUnblockUser, AccountID: 42, RequestID: 7}},
		{"support_reply:9", Action{Kind: ActionSupportReply, AccountID: 9}},
	}
	for _, tc := range tests {
		got, ok := ParseAction(tc.data)
		assert.True(t, ok, "data %q", tc.data)
		assert.Equal(t, tc.want, got, "data %q", tc.data)
	}
}

func TestParseActionMalformed(t *testing.T) {
	for _, data := range []string{
		"",
		"nonsense",
		"withdraw_paid",
		"withdraw_paid:",
		"withdraw_paid:abc",
		"withdraw_paid:7:8",
		"withdraw_paid:-1",
		"block_user",
		"block_user:abc",
		"block_user:42:abc",
		"block_user:42:7:9",
		"support_reply",
		"support_reply:abc",
		"check_subscription:1",
	} {
		_, ok := ParseAction(data)
		assert.False(t, ok, "data %q", data)
	}
}
