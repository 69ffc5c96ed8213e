package domain

import "os"

const (
	// RecordVersion is the single on-disk record version this build understands.
	// A record with any other version tag is rejected outright.
	RecordVersion int32 = 1

	// TokenLength is the fixed byte length of the integrity token stored in a record.
	TokenLength = 13

	// NameSeparator joins member identifiers into a composite group name.
	// It is chosen so it cannot appear in a normalized file path.
	NameSeparator = "|"

	// RestructureByteThreshold is the minimum total byte size of unreferenced
	// members before a restructure is committed.
	RestructureByteThreshold = 10 * 1024

	// RestructureMemberThreshold is the minimum count of unreferenced members
	// before a restructure is committed.
	RestructureMemberThreshold = 100
)

const (
	// DirPerm is the permission used when creating cache directories.
	DirPerm os.FileMode = 0o755
	// FilePerm is the permission used when writing cache records.
	FilePerm os.FileMode = 0o644
)

// DefaultCacheDirName is the directory created under the user cache dir when
// no explicit cache location is configured.
const DefaultCacheDirName = "voo"
