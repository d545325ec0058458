package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/app/repositories/repotest"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Runs only when a MongoDB server is available, e.g.
// TEST_MONGO_URI=mongodb://localhost:27017
func TestMongoRepositories(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database(fmt.Sprintf("coursemarket_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	repotest.Run(t, func(t *testing.T) *repositories.Repositories {
		ctx := context.Background()
		require.NoError(t, db.Collection(usersCollection).Drop(ctx))
		require.NoError(t, db.Collection(coursesCollection).Drop(ctx))
		require.NoError(t, EnsureIndexes(ctx, db))
		return NewRepositories(db)
	})
}
