package sketch

import "fmt"

// generationPrompt asks for the code + wiring pair as a JSON object.
// Pin guidance targets the Seeeduino XIAO, the default board.
func generationPrompt(description string) string {
	return fmt.Sprintf(`You are a senior Arduino developer and educator. From the user
description below, produce a JSON object containing Arduino code and a
hardware wiring guide.

### User description:
%s

### Rules:
1. Assign pins yourself when the user did not specify them. For the
   Seeeduino XIAO: digital/analog A0/D0..A3/D3, digital-only D4..D10.
   Never assign the same pin twice.
2. Produce a concise Markdown wiring guide covering every connection
   (signal, VCC, GND) for the pins you chose.
3. The code MUST be non-blocking: manage timing with millis(), never
   delay().
4. Respond with ONLY a JSON object with exactly two keys:
   "arduino_code": (string) the complete .ino source
   "wiring_instructions": (string) the Markdown wiring guide

Respond with the JSON object now:`, description)
}

// repairPrompt feeds compile diagnostics back for a corrected sketch.
// The wiring guide must come back unchanged; only the code may move.
func repairPrompt(req RepairRequest) string {
	return fmt.Sprintf(`You are an Arduino code expert. The code you generated earlier
failed to compile. Analyze the error output and fix the code.

### Original request and wiring:
User description: %s
Your wiring guide: %s

### Failing code:
`+"```arduino\n%s\n```"+`

### Compiler errors:
`+"```\n%s\n```"+`

### Instructions:
1. Find the root cause of the errors.
2. Fix only the "arduino_code" value; keep "wiring_instructions"
   exactly as it was.
3. Respond with ONLY the complete JSON object containing both
   "arduino_code" and "wiring_instructions".

Respond with the corrected JSON object now:`,
		req.Description, req.Artifact.Wiring, req.Artifact.Code, req.Stderr)
}
