// Package device enumerates serial ports and classifies which of them
// look like attached microcontroller boards.
package device

import (
	"context"
	"log"
	"strings"
)

// Port is a raw enumerated serial port before classification.
type Port struct {
	Name         string
	Description  string
	Manufacturer string
	VID          string // hex, e.g. "2341"
	PID          string // hex, e.g. "8037"
}

// Candidate is a classified port. Likely is the OR of every rule in
// the active rule set; enumeration order is preserved and is the only
// tie-breaker when auto-selecting.
type Candidate struct {
	Port         string `json:"port"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
	VIDPID       string `json:"vid_pid,omitempty"`
	Likely       bool   `json:"is_board"`
}

// boardIdentifiers are vendor/chipset names matched case-insensitively
// against port description and manufacturer strings.
var boardIdentifiers = []string{
	"Arduino", "CH340", "CP210x", "FTDI", "USB-SERIAL", "Seeeduino", "XIAO", "ESP32",
}

// boardVendorIDs is the USB vendor-id allow-list (hex, upper case).
var boardVendorIDs = []string{"2341", "1A86", "10C4", "0403", "2886", "303A"}

// Rule classifies a single port. Rules are independent predicates so
// each can be tested on its own and new ones appended without touching
// the classifier.
type Rule struct {
	Name  string
	Match func(Port) bool
}

// DefaultRules is the ordered rule set used by Classify.
var DefaultRules = []Rule{
	{
		// Matches description and manufacturer; the OS-backed
		// enumerator leaves Manufacturer empty, so that half only
		// fires for sources that report it.
		Name: "identifier-substring",
		Match: func(p Port) bool {
			desc := strings.ToLower(p.Description)
			manu := strings.ToLower(p.Manufacturer)
			for _, id := range boardIdentifiers {
				needle := strings.ToLower(id)
				if strings.Contains(desc, needle) || strings.Contains(manu, needle) {
					return true
				}
			}
			return false
		},
	},
	{
		Name: "vendor-id",
		Match: func(p Port) bool {
			vid := strings.ToUpper(strings.TrimSpace(p.VID))
			if vid == "" {
				return false
			}
			for _, allowed := range boardVendorIDs {
				if vid == allowed {
					return true
				}
			}
			return false
		},
	},
}

// Classify is pure: the same port list always yields the same
// candidates, independent of call order or prior calls.
func Classify(ports []Port) []Candidate {
	candidates := make([]Candidate, 0, len(ports))
	for _, p := range ports {
		likely := false
		for _, rule := range DefaultRules {
			if rule.Match(p) {
				likely = true
				break
			}
		}
		vidpid := ""
		if p.VID != "" && p.PID != "" {
			vidpid = strings.ToUpper(p.VID) + ":" + strings.ToUpper(p.PID)
		}
		candidates = append(candidates, Candidate{
			Port:         p.Name,
			Description:  p.Description,
			Manufacturer: p.Manufacturer,
			VIDPID:       vidpid,
			Likely:       likely,
		})
	}
	return candidates
}

// Enumerator lists serial ports. The OS-backed implementation lives in
// enumerator.go; tests substitute fixed port lists.
type Enumerator interface {
	Ports(ctx context.Context) ([]Port, error)
}

// Lister pairs an Enumerator with the classifier. Enumeration failures
// are absorbed: callers get an empty candidate list, never an error.
type Lister struct {
	enum Enumerator
}

func NewLister(enum Enumerator) *Lister {
	return &Lister{enum: enum}
}

// List enumerates and classifies every visible serial port.
func (l *Lister) List(ctx context.Context) []Candidate {
	ports, err := l.enum.Ports(ctx)
	if err != nil {
		log.Printf("device: port enumeration failed: %v", err)
		return []Candidate{}
	}
	return Classify(ports)
}
