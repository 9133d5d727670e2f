package presenciales

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/estetica-academy/presenciales/internal/models"
)

// OptionResult is the tally of one option.
type OptionResult struct {
	Option models.PollOption `json:"option"`
	Votes  int               `json:"votes"`
	Voters []string          `json:"voters"`
}

// Tally counts votes per option, keeping the poll's option order. Votes for
// unknown options are ignored.
func Tally(p *models.Poll, votes []models.Vote) []OptionResult {
	byOption := make(map[uuid.UUID]*OptionResult, len(p.Options))
	results := make([]OptionResult, len(p.Options))
	for i, o := range p.Options {
		results[i] = OptionResult{Option: o, Voters: []string{}}
		byOption[o.ID] = &results[i]
	}
	for _, v := range votes {
		r, ok := byOption[v.OptionID]
		if !ok {
			continue
		}
		r.Votes++
		r.Voters = append(r.Voters, v.UserName)
	}
	for i := range results {
		sort.Strings(results[i].Voters)
	}
	return results
}

// WriteResultsCSV renders the tally as CSV: date, start_time, duration_minutes, votes, voters.
func WriteResultsCSV(w io.Writer, p *models.Poll, votes []models.Vote) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "start_time", "duration_minutes", "votes", "voters"}); err != nil {
		return err
	}
	for _, r := range Tally(p, votes) {
		rec := []string{
			r.Option.Date,
			r.Option.StartTime,
			strconv.Itoa(r.Option.DurationMinutes),
			strconv.Itoa(r.Votes),
			strings.Join(r.Voters, "; "),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write option %s: %w", r.Option.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
