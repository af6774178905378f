package bot

import (
	"strconv"
	"strings"
)

type ActionKind int

const (
	ActionCheckSubscription ActionKind = iota
	ActionAdminStats
	ActionAdminWithdrawals
	ActionAdminBroadcast
	ActionWithdrawPaid
	ActionWithdrawRejected
	ActionBlockUser
	ActionUnblockUser
	ActionSupportReply
)

// Action is a decoded callback token. String-encoded tokens like
// "block_user:42:7" exist only on the wire; they are decoded once here and
// malformed ones never reach the core.
type Action struct {
	Kind      ActionKind
	AccountID int64
	RequestID uint
}

// ParseAction decodes a callback data token. The second return is false for
// anything malformed.
func ParseAction(data string) (Action, bool) {
	switch data {
	case "check_subscription":
		return Action{Kind: ActionCheckSubscription}, true
	case "admin_stats":
		return Action{Kind: ActionAdminStats}, true
	case "admin_withdrawals":
		return Action{Kind: ActionAdminWithdrawals}, true
	case "admin_broadcast":
		return Action{Kind: ActionAdminBroadcast}, true
	}

	parts := strings.Split(data, ":")
	switch parts[0] {
	case "withdraw_paid", "withdraw_rejected":
		if len(parts) != 2 {
			return Action{}, false
		}
		requestID, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return Action{}, false
		}
		kind := ActionWithdrawPaid
		if parts[0] == "withdraw_rejected" {
			kind = ActionWithdrawRejected
		}
		return Action{Kind: kind, RequestID: uint(requestID)}, true

	case "block_user", "unblock_user":
		// Request id is optional: the support card carries none.
		if len(parts) < 2 || len(parts) > 3 {
			return Action{}, false
		}
		accountID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Action{}, false
		}
		kind := ActionBlockUser
		if parts[0] == "unblock_user" {
			kind = ActionUnblockUser
		}
		action := Action{Kind: kind, AccountID: accountID}
		if len(parts) == 3 {
			requestID, err := strconv.ParseUint(parts[2], 10, 32)
			if err != nil {
				return Action{}, false
			}
			action.RequestID = uint(requestID)
		}
		return action, true

	case "support_reply":
		if len(parts) != 2 {
			return Action{}, false
		}
		accountID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Action{}, false
		}
		return Action{Kind: ActionSupportReply, AccountID: accountID}, true
	}

	return Action{}, false
}
