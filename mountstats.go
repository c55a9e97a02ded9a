package checknfs

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NFSv3Ops is the closed set of RPC operations we track per mount. These are
// the NFSv3 procedure names as they appear in the per-op statistics section
// of `/proc/self/mountstats`. Op names outside this set (the NFSv4 compound
// ops, for example) are ignored at parse time rather than collected.
var NFSv3Ops = []string{
	"NULL", "GETATTR", "SETATTR", "LOOKUP", "ACCESS", "READLINK",
	"READ", "WRITE", "CREATE", "MKDIR", "SYMLINK", "MKNOD", "REMOVE",
	"RMDIR", "RENAME", "LINK", "READDIR", "READDIRPLUS", "FSSTAT",
	"FSINFO", "PATHCONF", "COMMIT",
}

var nfsv3OpSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(NFSv3Ops))
	for _, op := range NFSv3Ops {
		set[op] = struct{}{}
	}
	return set
}()

// the two line shapes we care about in mountstats content. anything that
// matches neither is ignored, including device lines too mangled to match.
var (
	deviceRe = regexp.MustCompile(`^device (.+?) mounted on (.+?) with fstype (\w+)`)
	statRe   = regexp.MustCompile(`^\t\s*([A-Z]+): (\d+) (\d+) (\d+) (\d+) (\d+) (\d+) (\d+) (\d+)`)
)

// OpStat holds the counters from one line of "per-op" stats in an NFS mount.
type OpStat struct {
	Operations      uint64
	Transmissions   uint64
	MajorTimeouts   uint64
	BytesSent       uint64
	BytesReceived   uint64
	CumQueueTime    uint64
	CumRespTime     uint64
	CumTotalReqTime uint64
}

// MountRecord is a single mounted NFS device: where it's mounted, and the
// per-op counters observed for it. Ops only contains operations whose stat
// line was actually seen, so "never observed" is distinguishable from
// "observed at zero".
type MountRecord struct {
	ID         string // stable digest of device+mountpoint, the join key across snapshots
	Device     string
	Mountpoint string
	Ops        map[string]OpStat
}

// NewMountRecord constructs an empty MountRecord for the given device and
// mountpoint, deriving its ID.
func NewMountRecord(device, mountpoint string) *MountRecord {
	sum := sha1.Sum([]byte(device + mountpoint))
	return &MountRecord{
		ID:         hex.EncodeToString(sum[:]),
		Device:     device,
		Mountpoint: mountpoint,
		Ops:        make(map[string]OpStat),
	}
}

// Snapshot is one parsed point-in-time view of all NFS mounts' op counters,
// keyed by MountRecord ID.
type Snapshot map[string]MountRecord

// ParseMountstats parses the content of `/proc/self/mountstats` into a
// Snapshot. Only devices with fstype "nfs" are kept; all other device
// blocks are recognized and skipped, stat-shaped lines included.
// Returns an error if a counter field can't be converted, which given the
// grammar only happens on values too large for uint64. That indicates
// garbage input and is worth failing loudly over, so we don't coerce.
func ParseMountstats(content string) (Snapshot, error) {
	snap := make(Snapshot)

	// the current device block being accumulated. nil either before the
	// first nfs device line, or while skipping a non-nfs block.
	var current *MountRecord

	for _, line := range strings.Split(content, "\n") {
		if m := deviceRe.FindStringSubmatch(line); m != nil {
			// a new device header finalizes whatever we were accumulating
			if current != nil {
				snap[current.ID] = *current
				current = nil
			}

			device, mountpoint, fstype := m[1], m[2], m[3]
			if fstype != "nfs" {
				continue
			}

			current = NewMountRecord(device, mountpoint)
			continue
		}

		if current == nil {
			continue
		}

		m := statRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		op := m[1]
		if _, ok := nfsv3OpSet[op]; !ok {
			continue
		}

		stat, err := parseOpStat(m[2:])
		if err != nil {
			return nil, fmt.Errorf("parsing %s stats for %s: %w", op, current.Device, err)
		}

		// last write wins on a duplicate op line, though well formed
		// mountstats content shouldn't produce one
		current.Ops[op] = stat
	}

	if current != nil {
		snap[current.ID] = *current
	}

	return snap, nil
}

// parseOpStat converts the eight counter tokens of a stat line.
func parseOpStat(fields []string) (OpStat, error) {
	counters := make([]uint64, len(fields))
	for i, v := range fields {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return OpStat{}, fmt.Errorf("couldn't parse counter field %q: %w", v, err)
		}
		counters[i] = parsed
	}

	return OpStat{
		Operations:      counters[0],
		Transmissions:   counters[1],
		MajorTimeouts:   counters[2],
		BytesSent:       counters[3],
		BytesReceived:   counters[4],
		CumQueueTime:    counters[5],
		CumRespTime:     counters[6],
		CumTotalReqTime: counters[7],
	}, nil
}

// Alert reports that an operation incurred new major timeouts since the
// previous snapshot.
type Alert struct {
	Op    string
	Delta uint64
}

func (a Alert) String() string {
	return fmt.Sprintf("%s [%d]", a.Op, a.Delta)
}

// DiffTimeouts compares two records of the same mount and returns an Alert
// for every op whose major timeout counter increased. Ops absent from
// either record are skipped; alerts come back in NFSv3Ops order.
func DiffTimeouts(old, new MountRecord) []Alert {
	var alerts []Alert
	for _, op := range NFSv3Ops {
		oldStat, ok := old.Ops[op]
		if !ok {
			continue
		}
		newStat, ok := new.Ops[op]
		if !ok {
			continue
		}
		if newStat.MajorTimeouts > oldStat.MajorTimeouts {
			alerts = append(alerts, Alert{Op: op, Delta: newStat.MajorTimeouts - oldStat.MajorTimeouts})
		}
	}

	return alerts
}
