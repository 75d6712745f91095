package synchronize

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/docker/go-units"
)

// Scheme selects the transfer tool for a destination.
type Scheme string

const (
	SchemeRclone Scheme = "rclone"
	SchemeRsync  Scheme = "rsync"
)

// SizeLimitFactor is how many times the declared limit a source may reach.
const SizeLimitFactor = 10

var addressPattern = regexp.MustCompile(`(\w+?)://((.*?):(.*))`)

// Address is a parsed scheme://host:remotePath destination.
type Address struct {
	Scheme Scheme
	// Dest is the "host:remotePath" part passed to the transfer tool.
	Dest string
	Host string
	Path string
}

// AddressError reports a destination that cannot be used.
type AddressError struct {
	Address string
	Reason  string
}

func (e *AddressError) Error() string {
	return e.Reason + ": " + e.Address
}

// ParseAddress splits a destination path. It rejects strings without a
// scheme://host: part, blank remote paths and schemes other than rclone and
// rsync.
func ParseAddress(s string) (Address, error) {
	m := addressPattern.FindStringSubmatch(s)
	if m == nil {
		return Address{}, &AddressError{Address: s, Reason: "unrecognized destination"}
	}
	addr := Address{
		Scheme: Scheme(m[1]),
		Dest:   m[2],
		Host:   m[3],
		Path:   m[4],
	}
	if strings.TrimSpace(addr.Path) == "" {
		return Address{}, &AddressError{Address: s, Reason: "destination folder shouldn't be blank"}
	}
	switch addr.Scheme {
	case SchemeRclone, SchemeRsync:
	default:
		return Address{}, &AddressError{Address: s, Reason: fmt.Sprintf("unrecognized scheme %q", addr.Scheme)}
	}
	return addr, nil
}

// SizeLimitError reports a source too large for its destination.
type SizeLimitError struct {
	Source string
	Size   int64
	Limit  string
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("source folder %s (%s) is bigger than size limit %s",
		e.Source, units.BytesSize(float64(e.Size)), e.Limit)
}

// CheckSizeLimit fails when size exceeds SizeLimitFactor times limit.
// limit uses binary units: "10GB" is 10 GiB.
func CheckSizeLimit(source string, size int64, limit string) error {
	bytes, err := units.RAMInBytes(limit)
	if err != nil {
		return fmt.Errorf("invalid size limit %q: %w", limit, err)
	}
	if bytes > math.MaxInt64/SizeLimitFactor {
		// No int64 size can exceed the scaled limit.
		return nil
	}
	if size > bytes*SizeLimitFactor {
		return &SizeLimitError{Source: source, Size: size, Limit: limit}
	}
	return nil
}
