package chat

import (
	"strings"
	"time"
)

// AccessAction is the audited file operation.
type AccessAction string

const (
	AccessUpload   AccessAction = "upload"
	AccessDownload AccessAction = "download"
	AccessView     AccessAction = "view"
	AccessDelete   AccessAction = "delete"
	AccessShare    AccessAction = "share"
	AccessDecrypt  AccessAction = "decrypt"
)

func (a AccessAction) Valid() bool {
	switch a {
	case AccessUpload, AccessDownload, AccessView, AccessDelete, AccessShare, AccessDecrypt:
		return true
	}
	return false
}

// AccessStatus is the outcome of one access attempt.
type AccessStatus string

const (
	AccessSuccess      AccessStatus = "success"
	AccessFailed       AccessStatus = "failed"
	AccessUnauthorized AccessStatus = "unauthorized"
	AccessForbidden    AccessStatus = "forbidden"
)

// SecurityLevel grades how sensitive an access attempt is.
type SecurityLevel string

const (
	SecurityLow      SecurityLevel = "low"
	SecurityMedium   SecurityLevel = "medium"
	SecurityHigh     SecurityLevel = "high"
	SecurityCritical SecurityLevel = "critical"
)

// AccessLog is one append-only audit row per access attempt.
type AccessLog struct {
	ID               string
	AttachmentID     string
	IdentityID       string
	Action           AccessAction
	IPAddress        string
	UserAgent        string
	Status           AccessStatus
	ErrorMessage     string
	BytesTransferred int64
	DurationMS       int
	SecurityLevel    SecurityLevel
	CreatedAt        time.Time
}

// IsSuspicious flags rows the security sweep should surface.
func (l *AccessLog) IsSuspicious() bool {
	return l.Status == AccessUnauthorized ||
		l.Status == AccessForbidden ||
		l.SecurityLevel == SecurityCritical
}

var actionLevels = map[AccessAction]SecurityLevel{
	AccessView:     SecurityLow,
	AccessDownload: SecurityMedium,
	AccessUpload:   SecurityMedium,
	AccessShare:    SecurityMedium,
	AccessDecrypt:  SecurityHigh,
	AccessDelete:   SecurityHigh,
}

// DetermineSecurityLevel grades an access attempt. Local-network sources
// are downgraded; decrypt and delete are always at least high.
func DetermineSecurityLevel(action AccessAction, ip string) SecurityLevel {
	if isLocalIP(ip) {
		if action == AccessDelete {
			return SecurityMedium
		}
		return SecurityLow
	}
	if lvl, ok := actionLevels[action]; ok {
		return lvl
	}
	return SecurityMedium
}

func isLocalIP(ip string) bool {
	return strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "127.") ||
		ip == "::1"
}

// SuspiciousActivity is one aggregated row of repeated failed access
// attempts from a single source.
type SuspiciousActivity struct {
	IPAddress   string
	IdentityID  string
	Attempts    int
	LastAttempt time.Time
}
