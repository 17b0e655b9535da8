package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veiledapp/veiled-backend/internal/features"
)

var seedNicknames = []string{
	"NightOwl", "CoffeeFirst", "Stargazer", "BookWorm", "TrailRunner",
	"VinylHead", "PixelPusher", "SaltAir", "LateBloomer", "MaplePeak",
	"QuietStorm", "SunChaser", "InkAndPaper", "WaveRider", "NorthLoop",
	"CityLights", "GreenThumb", "OpenRoad", "SlowDancer", "LastTrain",
}

var seedZones = []string{"bar", "main_hall", "terrace", "lounge"}

var seedTags = [][]string{
	{"glasses", "red_jacket"},
	{"tall", "beard"},
	{"blue_dress"},
	{"hat", "tattoo"},
	{"curly_hair"},
}

// SeedTestData populates the database with a demo cast: twenty users,
// a pair of mutual likes in group 1 and an open meeting with a few
// participants who already declared criteria. Re-running is a no-op.
func SeedTestData(gdb *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	users := make([]User, 0, len(seedNicknames))
	for i, nick := range seedNicknames {
		gender := "female"
		if i%2 == 0 {
			gender = "male"
		}
		users = append(users, User{
			ID:             uint64(i + 1),
			AnonymousID:    uuid.NewString(),
			Nickname:       nick,
			RealName:       fmt.Sprintf("Seed User %02d", i+1),
			PhoneNumber:    fmt.Sprintf("+1555010%04d", i+1),
			Gender:         gender,
			Age:            21 + i,
			HeightCM:       158 + i*2,
			AppearanceTags: seedTags[i%len(seedTags)],
			LocationZone:   seedZones[i%len(seedZones)],
			IsPremium:      i%5 == 0,
			Credits:        50,
			PasswordHash:   string(hash),
		})
	}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&users).Error; err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	// One mutual pair and a handful of unanswered likes in group 1.
	likes := []Like{
		{ActorID: 1, RecipientID: 2, GroupID: 1},
		{ActorID: 2, RecipientID: 1, GroupID: 1},
		{ActorID: 3, RecipientID: 1, GroupID: 1},
		{ActorID: 4, RecipientID: 1, GroupID: 1, IsSuper: true},
		{ActorID: 5, RecipientID: 2, GroupID: 1},
	}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&likes).Error; err != nil {
		return fmt.Errorf("seed likes: %w", err)
	}

	lo, hi := CanonicalPair(1, 2)
	match := Match{UserLoID: lo, UserHiID: hi, GroupID: 1, ChatChannelID: "ch_seeddemo", IsActive: true}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&match).Error; err != nil {
		return fmt.Errorf("seed match: %w", err)
	}

	meeting := InstantMeeting{
		ID:                1,
		Code:              "DEMO0001",
		HostUserID:        3,
		Title:             "Friday rooftop social",
		FeatureCategories: features.AllKinds,
		ExpiresAt:         time.Now().UTC().Add(24 * time.Hour),
	}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&meeting).Error; err != nil {
		return fmt.Errorf("seed meeting: %w", err)
	}

	now := time.Now().UTC()
	participants := []Participant{
		{ID: 1, MeetingID: 1, UserID: 3, Nickname: "Stargazer", IsActive: true, JoinedAt: now,
			Attributes: features.Attributes{Age: 24, HeightCM: 182, Tags: []string{"beard", "hat"}, Zone: "bar"}},
		{ID: 2, MeetingID: 1, UserID: 4, Nickname: "BookWorm", IsActive: true, JoinedAt: now,
			Attributes: features.Attributes{Age: 27, HeightCM: 170, Tags: []string{"red_jacket"}, Zone: "bar"}},
		{ID: 3, MeetingID: 1, UserID: 5, Nickname: "TrailRunner", IsActive: true, JoinedAt: now,
			Attributes: features.Attributes{Age: 31, HeightCM: 165, Tags: []string{"glasses"}, Zone: "terrace"}},
	}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&participants).Error; err != nil {
		return fmt.Errorf("seed participants: %w", err)
	}

	interests := []Interest{
		{MeetingID: 1, ParticipantID: 1, Criteria: features.Criteria{
			{Kind: features.KindLocationZone, Zone: "bar"},
		}},
		{MeetingID: 1, ParticipantID: 2, Criteria: features.Criteria{
			{Kind: features.KindHeightRange, HeightRange: &features.HeightRange{Min: 175, Max: 195}},
		}},
	}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&interests).Error; err != nil {
		return fmt.Errorf("seed interests: %w", err)
	}

	return nil
}
