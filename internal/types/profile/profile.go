package profile

import "time"

type Profile struct {
	ID          string    `json:"id" firestore:"id"`
	DisplayName string    `json:"displayName" firestore:"displayName"`
	Email       string    `json:"email" firestore:"email"`
	AvatarURL   string    `json:"avatarUrl" firestore:"avatarUrl"`
	DeviceToken string    `json:"deviceToken,omitempty" firestore:"deviceToken,omitempty"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt"`
}

type Settings struct {
	NotificationsEnabled bool   `json:"notificationsEnabled" firestore:"notificationsEnabled"`
	SoundEnabled         bool   `json:"soundEnabled" firestore:"soundEnabled"`
	AmbientSound         string `json:"ambientSound" firestore:"ambientSound"`
	Theme                string `json:"theme" firestore:"theme"`
	ReminderHour         int    `json:"reminderHour" firestore:"reminderHour"`
}

type Mascot struct {
	Name      string     `json:"name" firestore:"name"`
	Stage     int        `json:"stage" firestore:"stage"`
	Happiness int        `json:"happiness" firestore:"happiness"`
	LastFedAt *time.Time `json:"lastFedAt,omitempty" firestore:"lastFedAt,omitempty"`
}

type CollectibleItem struct {
	ID           string    `json:"id" firestore:"id"`
	Name         string    `json:"name" firestore:"name"`
	Rarity       string    `json:"rarity" firestore:"rarity"`
	Count        int       `json:"count" firestore:"count"`
	FirstFoundAt time.Time `json:"firstFoundAt" firestore:"firstFoundAt"`
}

type Collection struct {
	Items []CollectibleItem `json:"items" firestore:"items"`
}

type CollectionStats struct {
	TotalFound  int       `json:"totalFound" firestore:"totalFound"`
	UniqueFound int       `json:"uniqueFound" firestore:"uniqueFound"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt"`
}

func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled: true,
		SoundEnabled:         true,
		AmbientSound:         "rain",
		Theme:                "aurora",
		ReminderHour:         18,
	}
}

func DefaultMascot() Mascot {
	return Mascot{Name: "Dusty", Stage: 1, Happiness: 80}
}
