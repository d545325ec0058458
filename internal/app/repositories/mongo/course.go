package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yigit/coursemarket/internal/app/models"
	"github.com/yigit/coursemarket/internal/app/repositories"
	"github.com/yigit/coursemarket/internal/pkg/apperrors"
	"github.com/yigit/coursemarket/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type topicDocument struct {
	Title          string `bson:"title"`
	Description    string `bson:"description"`
	VideoURL       string `bson:"video_url"`
	VideoThumbnail string `bson:"video_thumbnail"`
}

type chapterDocument struct {
	Title  string          `bson:"title"`
	Topics []topicDocument `bson:"topics"`
}

type instructorDocument struct {
	Name   string `bson:"name"`
	Email  string `bson:"email"`
	Avatar string `bson:"avatar"`
}

type courseDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Title          string             `bson:"title"`
	Description    string             `bson:"description"`
	Tags           []string           `bson:"tags"`
	NumberOfVideos int                `bson:"number_of_videos"`
	GetPoints      int                `bson:"get_points"`
	Thumbnail      string             `bson:"thumbnail"`
	Instructor     instructorDocument `bson:"instructor"`
	Chapters       []chapterDocument  `bson:"chapters"`
	CreatedAt      time.Time          `bson:"created_at"`
}

func newCourseDocument(c *models.Course) *courseDocument {
	doc := &courseDocument{
		Title:          c.Title,
		Description:    c.Description,
		Tags:           append([]string{}, c.Tags...),
		NumberOfVideos: c.NumberOfVideos,
		GetPoints:      c.GetPoints,
		Thumbnail:      c.Thumbnail,
		Instructor:     instructorDocument(c.Instructor),
		Chapters:       make([]chapterDocument, 0, len(c.Chapters)),
	}
	for _, ch := range c.Chapters {
		cd := chapterDocument{Title: ch.Title, Topics: make([]topicDocument, 0, len(ch.Topics))}
		for _, t := range ch.Topics {
			cd.Topics = append(cd.Topics, topicDocument(t))
		}
		doc.Chapters = append(doc.Chapters, cd)
	}
	return doc
}

func (d *courseDocument) model() *models.Course {
	c := &models.Course{
		ID:             d.ID.Hex(),
		Title:          d.Title,
		Description:    d.Description,
		Tags:           append([]string{}, d.Tags...),
		NumberOfVideos: d.NumberOfVideos,
		GetPoints:      d.GetPoints,
		Thumbnail:      d.Thumbnail,
		Instructor:     models.Instructor(d.Instructor),
		Chapters:       make([]models.Chapter, 0, len(d.Chapters)),
		CreatedAt:      d.CreatedAt,
	}
	for _, cd := range d.Chapters {
		ch := models.Chapter{Title: cd.Title, Topics: make([]models.Topic, 0, len(cd.Topics))}
		for _, t := range cd.Topics {
			ch.Topics = append(ch.Topics, models.Topic(t))
		}
		c.Chapters = append(c.Chapters, ch)
	}
	return c
}

// CourseRepository handles course document operations
type CourseRepository struct {
	coll *mongo.Collection
}

var _ repositories.CourseRepository = (*CourseRepository)(nil)

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{coll: db.Collection(coursesCollection)}
}

// Create creates a new course
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	doc := newCourseDocument(course)
	doc.ID = primitive.NewObjectID()
	if course.CreatedAt.IsZero() {
		doc.CreatedAt = now()
	} else {
		doc.CreatedAt = course.CreatedAt.UTC().Truncate(time.Millisecond)
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		logger.Error().Err(err).Msg("Error inserting course document")
		return fmt.Errorf("error creating course: %w", err)
	}

	course.ID = doc.ID.Hex()
	course.CreatedAt = doc.CreatedAt
	return nil
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}

	var doc courseDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error getting course by ID: %w", err)
	}
	return doc.model(), nil
}

func (r *CourseRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Course, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying courses: %w", err)
	}
	defer cursor.Close(ctx)

	courses := []*models.Course{}
	for cursor.Next(ctx) {
		var doc courseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding course: %w", err)
		}
		courses = append(courses, doc.model())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating courses: %w", err)
	}
	return courses, nil
}

var oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// List returns every course, oldest first
func (r *CourseRepository) List(ctx context.Context) ([]*models.Course, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(oldestFirst))
}

// ListByInstructorEmail returns the courses whose instructor snapshot has email
func (r *CourseRepository) ListByInstructorEmail(ctx context.Context, email string) ([]*models.Course, error) {
	return r.find(ctx, bson.M{"instructor.email": email}, options.Find().SetSort(oldestFirst))
}

// ListRecent returns up to limit courses, newest first
func (r *CourseRepository) ListRecent(ctx context.Context, limit int) ([]*models.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{}, opts)
}
