package store

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/matheus3301/inbox/internal/errs"
)

var fingerprintNS = uuid.NewSHA1(uuid.NameSpaceURL, []byte("inbox:message"))

// TempIDPrefix marks identifiers minted locally for unconfirmed sends.
const TempIDPrefix = "temp_"

func newTempID() string {
	return TempIDPrefix + uuid.NewString()
}

func idKey(id string) string      { return "id:" + id }
func tmpKey(tempID string) string { return "tmp:" + tempID }

// fpKey identifies a record that carries no server id by its content.
func fpKey(chatID string, r Record) string {
	name := strings.Join([]string{chatID, string(r.Direction), strconv.FormatInt(r.Timestamp, 10), r.Text}, "\x00")
	return "fp:" + uuid.NewSHA1(fingerprintNS, []byte(name)).String()
}

// compatible reports whether two server ids may denote the same message.
func compatible(a, b string) bool {
	return a == "" || b == "" || a == b
}

// resolve finds the entry r denotes. A nil entry means r is a new message.
// The returned error is an identity conflict; the caller still treats r as new.
func (c *chat) resolve(r Record, tolerance int64) (*entry, error) {
	if r.ID != "" {
		if e := c.keys[idKey(r.ID)]; e != nil {
			return e, nil
		}
	}
	if r.TempID != "" {
		if e := c.keys[tmpKey(r.TempID)]; e != nil {
			if !compatible(e.ID, r.ID) {
				return nil, errs.IdentityConflict("temp id " + r.TempID + " already confirmed as " + e.ID + ", record says " + r.ID)
			}
			return e, nil
		}
	}
	if r.Estimated {
		return c.matchEstimated(r, tolerance), nil
	}
	if e := c.keys[fpKey(c.id, r)]; e != nil && compatible(e.ID, r.ID) {
		return e, nil
	}
	if e := c.matchEstimated(r, tolerance); e != nil {
		return e, nil
	}
	if r.Direction != Outbound {
		return nil, nil
	}
	return c.matchEcho(r, tolerance)
}

// matchEstimated pairs a record whose timestamp came from the local clock
// with the backend's copy of the same message, in either arrival order.
func (c *chat) matchEstimated(r Record, tolerance int64) *entry {
	var best *entry
	bestDist := tolerance + 1
	for _, e := range c.entries {
		if e.estimated == r.Estimated || !compatible(e.ID, r.ID) {
			continue
		}
		if e.Direction != r.Direction || e.Text != r.Text {
			continue
		}
		d := e.Timestamp - r.Timestamp
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}
