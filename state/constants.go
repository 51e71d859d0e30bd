package state

import "time"

var (
	DispatchQueueSize = 128
	// MaxFrameSize bounds a single frame on stream transports
	MaxFrameSize = 16 << 20
	// frames larger than this are logged as a size summary
	LogTruncateThreshold = 1000000

	HelloTimeout   = time.Second * 5
	RedialDelay    = time.Second * 5
	DialBackoffTTL = time.Second * 15
	RouteDumpDelay = time.Second * 10

	FloodFrameSize  = 1024
	FloodFrameCount = 2000

	// default port
	DefaultPort = 57175
)

// MaxHops is the longest route a node will store or accept in an advertisement
const MaxHops = 1 << 30
