package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"pocketsync/internal/records"
)

// Result is the outcome of a single check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

var statfs = func(path string) (freeBytes uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// CheckSourceRoot verifies the source library exists and is readable.
func CheckSourceRoot(path string) Result {
	const name = "Source root"
	if r, ok := checkDirectory(name, path, unix.R_OK|unix.X_OK); !ok {
		return r
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckTargetRoot verifies the target exists and is writable. The target must
// be created by the operator; refusing to create it catches typoed paths
// before a full library lands in the wrong place.
func CheckTargetRoot(path string) Result {
	const name = "Target root"
	if r, ok := checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK); !ok {
		return r
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func checkDirectory(name, path string, mode uint32) (Result, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}, false
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}, false
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}, false
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}, false
	}
	return Result{}, true
}

// CheckRootsNotSwapped fails when the source root carries a sync record
// file, the signature of a previous run's target. Syncing out of a mirror
// would propagate reduced-quality files over originals.
func CheckRootsNotSwapped(sourceRoot string) Result {
	const name = "Root orientation"
	if records.Exists(sourceRoot) {
		return Result{Name: name, Detail: fmt.Sprintf("%s contains %s; it looks like a sync target, not a source", sourceRoot, records.FileName)}
	}
	return Result{Name: name, Passed: true, Detail: "source carries no sync records"}
}

// CheckBinary verifies an external tool is on PATH (or at an explicit path).
func CheckBinary(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckFreeSpace verifies the target filesystem has at least requiredBytes
// available. Zero requiredBytes reports free space without judging it.
func CheckFreeSpace(targetRoot string, requiredBytes uint64) Result {
	const name = "Free space"
	free, err := statfs(targetRoot)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs %s: %v", targetRoot, err)}
	}
	if requiredBytes > 0 && free < requiredBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%d bytes free, need %d", free, requiredBytes)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d bytes free", free)}
}

// Run executes the standard pre-sync checks. estimatedBytes sizes the free
// space requirement; pass 0 to skip that judgment.
func Run(sourceRoot, targetRoot, ffmpegBinary, ffprobeBinary string, estimatedBytes uint64) []Result {
	results := []Result{
		CheckSourceRoot(sourceRoot),
		CheckTargetRoot(targetRoot),
		CheckRootsNotSwapped(sourceRoot),
		CheckBinary("FFmpeg", ffmpegBinary),
		CheckBinary("FFprobe", ffprobeBinary),
	}
	if results[1].Passed {
		results = append(results, CheckFreeSpace(targetRoot, estimatedBytes))
	}
	return results
}

// FirstFailure returns the first failed result, if any.
func FirstFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}
