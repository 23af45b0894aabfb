package repo

import (
	"context"
	"time"

	"ChunkVault/config"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Mongo *mongo.Database

// InitMongo connects to MongoDB and waits for the first successful ping.
func InitMongo() *mongo.Database {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.AppConfig.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("init mongo fail")
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal().Err(err).Msg("ping mongo fail")
	}
	log.Info().Str("db", config.AppConfig.MongoDB).Msg("init mongo success")
	Mongo = client.Database(config.AppConfig.MongoDB)
	return Mongo
}

// CloseMongo disconnects the client behind Mongo.
func CloseMongo(ctx context.Context) error {
	if Mongo == nil {
		return nil
	}
	return Mongo.Client().Disconnect(ctx)
}
