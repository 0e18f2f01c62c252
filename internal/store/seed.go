package store

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/narasimhaDln/chat-app/internal/models"
)

// seedPassword is the credential every fixture account starts with.
const seedPassword = "password123"

func mustHash(password string) string {
	// MinCost keeps first-run seeding fast; real registrations use
	// DefaultCost.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}

// seedUsers returns the built-in accounts used when the cache holds no
// user collection yet.
func seedUsers() []models.User {
	hash := mustHash(seedPassword)
	return []models.User{
		{
			ID:           "user-1",
			Username:     "memequeen",
			Email:        "queen@memes.com",
			PasswordHash: hash,
			DisplayName:  "Meme Queen",
			AvatarURL:    "https://images.pexels.com/photos/1674752/pexels-photo-1674752.jpeg?auto=compress&cs=tinysrgb&w=150",
			Bio:          "I make the internet laugh daily. Meme enthusiast and creator of viral content.",
			CreatedAt:    time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC),
			Badges:       []string{"Meme Maestro", "10k Views Club", "First Viral Post"},
			Stats:        models.Stats{TotalMemes: 42, TotalUpvotes: 15230, TotalViews: 53900},
		},
		{
			ID:           "user-2",
			Username:     "dankmemer",
			Email:        "dank@memes.com",
			PasswordHash: hash,
			DisplayName:  "Dank Memer",
			AvatarURL:    "https://images.pexels.com/photos/614810/pexels-photo-614810.jpeg?auto=compress&cs=tinysrgb&w=150",
			Bio:          "Bringing you the dankest memes since 2015. Quality over quantity.",
			CreatedAt:    time.Date(2023, 2, 20, 14, 30, 0, 0, time.UTC),
			Badges:       []string{"Weekly Winner", "Trending Tag Creator"},
			Stats:        models.Stats{TotalMemes: 28, TotalUpvotes: 9845, TotalViews: 31200},
		},
		{
			ID:           "user-3",
			Username:     "memelord",
			Email:        "lord@memes.com",
			PasswordHash: hash,
			DisplayName:  "Meme Lord",
			AvatarURL:    "https://images.pexels.com/photos/220453/pexels-photo-220453.jpeg?auto=compress&cs=tinysrgb&w=150",
			Bio:          "Professional meme connoisseur. My memes will make your day better.",
			CreatedAt:    time.Date(2023, 3, 10, 9, 15, 0, 0, time.UTC),
			Badges:       []string{"Consistent Creator", "Comment King"},
			Stats:        models.Stats{TotalMemes: 35, TotalUpvotes: 12100, TotalViews: 42500},
		},
	}
}

// seedMemes returns the built-in collection, most recent first.
func seedMemes() []models.Meme {
	return []models.Meme{
		{
			ID:         "meme-3",
			Title:      "Monday standups",
			ImageURL:   "https://i.imgflip.com/2kbn1e.jpg",
			TopText:    "When someone asks for a quick update",
			BottomText: "45 minutes later",
			CreatorID:  "user-3",
			CreatedAt:  time.Date(2023, 6, 2, 8, 45, 0, 0, time.UTC),
			Upvotes:    310,
			Views:      1850,
			Comments:   []models.Comment{},
			Tags:       []string{"work", "relatable"},
			Categories: []string{"funny", "tech"},
		},
		{
			ID:        "meme-2",
			Title:     "Cat logic",
			ImageURL:  "https://i.imgflip.com/1ur9b0.jpg",
			CreatorID: "user-2",
			CreatedAt: time.Date(2023, 5, 18, 16, 20, 0, 0, time.UTC),
			Upvotes:   540,
			Views:     3200,
			Comments: []models.Comment{
				{
					ID:             "comment-1",
					AuthorID:       "user-1",
					AuthorUsername: "memequeen",
					Text:           "This is exactly my cat",
					CreatedAt:      time.Date(2023, 5, 18, 17, 2, 0, 0, time.UTC),
				},
			},
			Tags:       []string{"cats", "pets"},
			Categories: []string{"animals"},
		},
		{
			ID:         "meme-1",
			Title:      "Me explaining my code",
			ImageURL:   "https://i.imgflip.com/30b1gx.jpg",
			TopText:    "Writing clean code",
			BottomText: "Shipping on friday",
			CreatorID:  "user-1",
			CreatedAt:  time.Date(2023, 4, 1, 11, 0, 0, 0, time.UTC),
			Upvotes:    1240,
			Views:      8700,
			Comments:   []models.Comment{},
			Tags:       []string{"programming", "deadline"},
			Categories: []string{"tech", "funny"},
		},
	}
}
