package provision

import (
	"regexp"
	"strings"
)

var includePattern = regexp.MustCompile(`#include\s*<([^>]+)\.h>`)

// LibraryRule maps source text to library names it implies. Rules run
// in order and their results are merged, first occurrence wins.
type LibraryRule struct {
	Name      string
	Libraries func(source string) []string
}

// DefaultLibraryRules covers explicit include directives plus one
// narrow heuristic: servo code generated without its include still
// needs the Servo library installed.
var DefaultLibraryRules = []LibraryRule{
	{
		Name: "include-directives",
		Libraries: func(source string) []string {
			matches := includePattern.FindAllStringSubmatch(source, -1)
			libs := make([]string, 0, len(matches))
			for _, m := range matches {
				libs = append(libs, m[1])
			}
			return libs
		},
	},
	{
		Name: "servo-symbol",
		Libraries: func(source string) []string {
			if strings.Contains(source, "myServo") && !strings.Contains(source, "Servo.h") {
				return []string{"Servo"}
			}
			return nil
		},
	},
}

// InferLibraries runs every rule against the source and returns the
// deduplicated union in first-seen order.
func InferLibraries(source string) []string {
	seen := make(map[string]struct{})
	var libs []string
	for _, rule := range DefaultLibraryRules {
		for _, lib := range rule.Libraries(source) {
			if _, ok := seen[lib]; ok {
				continue
			}
			seen[lib] = struct{}{}
			libs = append(libs, lib)
		}
	}
	return libs
}

// quotedVendorPrefixes lists vendors whose library names contain
// spaces and must be quoted for the install command.
var quotedVendorPrefixes = []string{"Adafruit"}

// InstallArg returns the library name as passed to lib install,
// quoting names from known multi-word vendors.
func InstallArg(name string) string {
	for _, prefix := range quotedVendorPrefixes {
		if strings.Contains(name, prefix) {
			return `"` + name + `"`
		}
	}
	return name
}
