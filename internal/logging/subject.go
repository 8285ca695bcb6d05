package logging

import "strings"

// FormatSubject builds the mode/image/stage subject string used in console output.
func FormatSubject(mode, image, stage string) string {
	mode = strings.TrimSpace(mode)
	image = strings.TrimSpace(image)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 3)
	if mode != "" {
		var formattedMode string
		if len(mode) > 1 {
			formattedMode = strings.ToUpper(mode[:1]) + strings.ToLower(mode[1:])
		} else {
			formattedMode = strings.ToUpper(mode)
		}
		parts = append(parts, formattedMode)
	}
	switch {
	case image != "" && stage != "":
		parts = append(parts, image+" ("+stage+")")
	case image != "":
		parts = append(parts, image)
	case stage != "":
		parts = append(parts, stage)
	}
	return strings.Join(parts, " · ")
}
