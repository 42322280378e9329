package ports

import "loanverify/domain/core"

// IDGenerator hands out unique application reference numbers
type IDGenerator interface {
	NewApplicationID() core.ApplicationID
}
