package provision

import (
	"reflect"
	"testing"
)

func TestInferLibrariesFromIncludes(t *testing.T) {
	source := `#include <Servo.h>
#include <Adafruit_NeoPixel.h>
#include <Wire.h>

void setup() {}
void loop() {}`

	got := InferLibraries(source)
	want := []string{"Servo", "Adafruit_NeoPixel", "Wire"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("InferLibraries = %v, want %v", got, want)
	}
}

func TestInferLibrariesServoHeuristic(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "servo symbol without include",
			source: "Servo myServo;\nvoid setup() { myServo.attach(A0); }",
			want:   []string{"Servo"},
		},
		{
			name:   "servo include already present",
			source: "#include <Servo.h>\nServo myServo;",
			want:   []string{"Servo"},
		},
		{
			name:   "no servo at all",
			source: "void setup() { pinMode(5, OUTPUT); }",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferLibraries(tt.source)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("InferLibraries = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInferLibrariesDeduplicates(t *testing.T) {
	source := "#include <Wire.h>\n#include <Wire.h>"
	got := InferLibraries(source)
	if !reflect.DeepEqual(got, []string{"Wire"}) {
		t.Fatalf("expected deduplicated [Wire], got %v", got)
	}
}

func TestInstallArgQuotesVendorLibraries(t *testing.T) {
	if got := InstallArg("Adafruit_NeoPixel"); got != `"Adafruit_NeoPixel"` {
		t.Fatalf("InstallArg quoting = %q", got)
	}
	if got := InstallArg("Servo"); got != "Servo" {
		t.Fatalf("InstallArg = %q, want Servo", got)
	}
}
