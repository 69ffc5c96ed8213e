package domain

import "go.trai.ch/zerr"

var (
	// ErrVersionMismatch is returned when a record's version tag does not match RecordVersion.
	ErrVersionMismatch = zerr.New("record version mismatch")

	// ErrTruncatedRecord is returned when a record's declared lengths exceed the available bytes.
	ErrTruncatedRecord = zerr.New("truncated record")

	// ErrNameCollision is returned when a decoded record's name differs from the expected
	// logical name. Digests are weak; a collision means "no usable cache", not corruption.
	ErrNameCollision = zerr.New("digest collision, record belongs to a different group")

	// ErrArtifactRejected is returned when the script engine refuses a previously stored artifact.
	ErrArtifactRejected = zerr.New("engine rejected cached artifact")

	// ErrArtifactExtractFailed is returned when a fresh artifact cannot be extracted from a compiled unit.
	ErrArtifactExtractFailed = zerr.New("failed to extract artifact from compiled unit")

	// ErrGroupClosed is returned when tracking a new member into a fully restored group.
	ErrGroupClosed = zerr.New("group is closed to new members")

	// ErrUnknownMember is returned when refreshing a member the group does not contain.
	ErrUnknownMember = zerr.New("member not present in group")

	// ErrNotCompiled is returned when an operation requires a compiled unit and none exists.
	ErrNotCompiled = zerr.New("group has no compiled unit")

	// ErrRecordReadFailed is returned when a record file cannot be read.
	ErrRecordReadFailed = zerr.New("failed to read record")

	// ErrRecordWriteFailed is returned when a record file cannot be written.
	ErrRecordWriteFailed = zerr.New("failed to write record")

	// ErrCacheDirCreateFailed is returned when the cache directory cannot be created.
	ErrCacheDirCreateFailed = zerr.New("failed to create cache directory")

	// ErrMemberReadFailed is returned when a member's backing file cannot be re-read
	// for a freshness comparison.
	ErrMemberReadFailed = zerr.New("failed to read member source")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrNoEngine is returned when a compile is requested and no script engine is attached.
	ErrNoEngine = zerr.New("no script engine attached")

	// ErrNoResolver is returned when a resolution is requested and no resolver is attached.
	ErrNoResolver = zerr.New("no resolver attached")
)
