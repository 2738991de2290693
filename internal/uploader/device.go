package uploader

// DeviceProfile describes the capability class of the uploading device.
// Constrained covers low-memory or metered environments where wide fanout
// hurts more than it helps.
type DeviceProfile string

const (
	ProfileCapable     DeviceProfile = "capable"
	ProfileConstrained DeviceProfile = "constrained"
)

// LargeFileThreshold is the average batch size above which transfers run
// one at a time regardless of device profile.
const LargeFileThreshold int64 = 4 << 20 // 4 MiB

// ChooseFanoutWidth decides how many files of a batch stream concurrently.
// Pure: computed once per batch from the device class and the batch's
// average file size, never re-evaluated mid-batch.
func ChooseFanoutWidth(profile DeviceProfile, avgFileSize int64) int {
	if avgFileSize > LargeFileThreshold {
		return 1
	}
	if profile == ProfileConstrained {
		return 2
	}
	return 3
}
