package utils

import "unicode/utf8"

// SplitText splits text into chunks of at most chunkSize runes, each
// starting overlap runes before the end of the previous one. Overlap values
// outside [0, chunkSize) disable overlapping.
func SplitText(text string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 || utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if overlap < 0 || step <= 0 {
		step = chunkSize
	}

	var chunks []string
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}
