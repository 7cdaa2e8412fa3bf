package store

import "fmt"

// Key-format helpers for the lp:* namespace (spec §6, SPEC_FULL.md §6).

func userKey(walletID string) string      { return fmt.Sprintf("lp:user:%s", walletID) }
func chatWalletKey(chatID string) string  { return fmt.Sprintf("lp:chat:%s:wallet", chatID) }
func recipientKey(walletID string) string { return fmt.Sprintf("lp:recipient:%s", walletID) }

func trackedSetKey(walletID string) string { return fmt.Sprintf("lp:tracked:%s", walletID) }
func trackedRecordKey(walletID, positionID string) string {
	return fmt.Sprintf("lp:tracked:%s:%s", walletID, positionID)
}

const (
	scheduleHashKey  = "lp:dca:schedules"
	activeSetKey     = "lp:dca:active"
	workerStateKey   = "lp:worker:state"
	workerLogsKey    = "lp:worker:logs"
	recipientsSetKey = "lp:recipients"
)

func scheduleHistoryKey(scheduleID string) string {
	return fmt.Sprintf("lp:dca:history:%s", scheduleID)
}

const (
	historyCap = 200
	logCap     = 500
)
