package queries

import (
	"encoding/csv"
	"io"
	"strconv"

	"voteboard/contexts/elections/voting-service/domain/entities"
)

var exportHeader = []string{"rank", "name", "voter_id", "votes", "percentage"}

// WriteResultsCSV writes the leaderboard one row per candidate. Ranks follow
// leaderboard order, so tied candidates get consecutive ranks.
func WriteResultsCSV(w io.Writer, results entities.Results) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for i, item := range results.Candidates {
		row := []string{
			strconv.Itoa(i + 1),
			item.Name,
			item.VoterID,
			strconv.Itoa(item.VotesReceived),
			strconv.FormatFloat(item.Percentage, 'f', 1, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
