package view

import "github.com/vovakirdan/figaro/internal/model"

// DefaultRowSize is the number of cards per row.
const DefaultRowSize = 3

// Partition groups channels into rows of size cards. Channels are taken from
// the end of the list, so the last channel received is the first card shown.
// The final row may be shorter. The input slice is left untouched.
func Partition(channels []model.Channel, size int) [][]model.Channel {
	if size <= 0 {
		size = DefaultRowSize
	}
	if len(channels) == 0 {
		return nil
	}

	rows := make([][]model.Channel, 0, (len(channels)+size-1)/size)
	for end := len(channels); end > 0; {
		row := make([]model.Channel, 0, size)
		for col := 0; col < size && end > 0; col++ {
			end--
			row = append(row, channels[end])
		}
		rows = append(rows, row)
	}
	return rows
}
