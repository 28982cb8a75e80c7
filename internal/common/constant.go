package common

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session_id"

// FileNameHeader carries the target file name on uploads.
const FileNameHeader = "X-File-Name"

// TrashDirName is the reserved per-user soft-delete directory.
const TrashDirName = "trash"
