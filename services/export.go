package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"blazeoffice/models"
)

var (
	CommitmentCSVHeader  = []string{"Email", "Country", "Amount USD", "Est. Tokens", "Tier", "Converted", "Created At"}
	LeaderboardCSVHeader = []string{"Rank", "Email", "Referral Code", "Referrals", "Badge", "Bonus Tokens", "Joined At"}
)

// WriteCommitmentsCSV writes one record per commitment under the header.
func WriteCommitmentsCSV(w io.Writer, rows []models.Commitment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CommitmentCSVHeader); err != nil {
		return err
	}
	for _, c := range rows {
		country := ""
		if c.CountryCode != nil {
			country = *c.CountryCode
		}
		record := []string{
			c.Email,
			country,
			strconv.FormatFloat(c.IntendedAmountUSD, 'f', 2, 64),
			strconv.FormatFloat(c.EstimatedTokens, 'f', 0, 64),
			strconv.Itoa(c.Tier),
			strconv.FormatBool(c.Converted),
			c.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write commitment %d: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLeaderboardCSV writes the ranked entries, unmasked.
func WriteLeaderboardCSV(w io.Writer, entries []models.LeaderboardEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LeaderboardCSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		badge, bonus := "", "0"
		if e.Reward != nil {
			badge = e.Reward.Badge
			bonus = strconv.Itoa(e.Reward.BonusTokens)
		}
		record := []string{
			strconv.Itoa(e.Rank),
			e.Email,
			e.ReferralCode,
			strconv.Itoa(e.ReferralCount),
			badge,
			bonus,
			e.JoinedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write leaderboard rank %d: %w", e.Rank, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename stamps an export name with the current date.
func ExportFilename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", prefix, now.UTC().Format("2006-01-02"))
}
