// Command main seeds demo posts and comments.
package main

import (
	"context"
	"flag"
	"log"

	"footballsocial/internal/config"
	"footballsocial/internal/repository"
	"footballsocial/internal/seed"
	"footballsocial/internal/server"
)

func main() {
	// Parse command line flags
	numPosts := flag.Int("posts", 20, "Number of generated posts to create")
	maxComments := flag.Int("comments", 4, "Maximum comments per generated post")
	shouldClean := flag.Bool("clean", false, "Delete existing posts and comments before seeding")
	skipFixtures := flag.Bool("no-fixtures", false, "Skip the curated fixture posts")
	fakerSeed := flag.Int64("seed", 0, "Seed for generated data (0 is random)")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d generated posts, clean=%v, fixtures=%v\n", *numPosts, *shouldClean, !*skipFixtures)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, _, err := server.OpenStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open table store: %v", err)
	}

	s := seed.NewSeeder(repository.NewPostRepository(store), repository.NewCommentRepository(store))
	res, err := s.Run(context.Background(), seed.Options{
		Clean:        *shouldClean,
		SkipFixtures: *skipFixtures,
		Posts:        *numPosts,
		MaxComments:  *maxComments,
		Seed:         *fakerSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: removed %d posts, created %d posts and %d comments", res.Removed, res.Posts, res.Comments)
}
