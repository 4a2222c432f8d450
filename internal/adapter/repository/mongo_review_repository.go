package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reviewshop/internal/domain/entity"
	"reviewshop/internal/domain/repository"
	"reviewshop/pkg/errors"
)

type mongoReviewRepository struct {
	collection *mongo.Collection
}

func NewMongoReviewRepository(db *mongo.Database) repository.ReviewRepository {
	return &mongoReviewRepository{
		collection: db.Collection("reviews"),
	}
}

// reviewDoc keeps bson concerns out of the domain entity.
type reviewDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Product    string             `bson:"product"`
	Message    string             `bson:"message"`
	Author     string             `bson:"author"`
	LikesCount int                `bson:"likesCount"`
	LikedBy    []string           `bson:"likedBy"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d *reviewDoc) toEntity() *entity.Review {
	likedBy := d.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}
	return &entity.Review{
		ID:         d.ID.Hex(),
		Product:    d.Product,
		Message:    d.Message,
		Author:     d.Author,
		LikesCount: d.LikesCount,
		LikedBy:    likedBy,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (r *mongoReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	doc := reviewDoc{
		ID:         primitive.NewObjectID(),
		Product:    review.Product,
		Message:    review.Message,
		Author:     review.Author,
		LikesCount: review.LikesCount,
		LikedBy:    review.LikedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return classifyMongoError("Failed to create review", err)
	}

	review.ID = doc.ID.Hex()
	return nil
}

func (r *mongoReviewRepository) GetByID(ctx context.Context, id entity.ReviewID) (*entity.Review, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc reviewDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("Review", err)
		}
		return nil, classifyMongoError("Failed to get review", err)
	}

	return doc.toEntity(), nil
}

func (r *mongoReviewRepository) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.Review, int64, error) {
	filter := bson.M{"product": productID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, classifyMongoError("Failed to count reviews", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, classifyMongoError("Failed to list reviews", err)
	}
	defer cursor.Close(ctx)

	reviews := []*entity.Review{}
	for cursor.Next(ctx) {
		var doc reviewDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, errors.Internal("Failed to parse review data", err)
		}
		reviews = append(reviews, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, classifyMongoError("Failed to list reviews", err)
	}

	return reviews, total, nil
}

func (r *mongoReviewRepository) LikeState(ctx context.Context, id entity.ReviewID) (*entity.LikeState, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetProjection(bson.M{"likedBy": 1, "likesCount": 1})

	var doc reviewDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("Review", err)
		}
		return nil, classifyMongoError("Failed to get like state", err)
	}

	likedBy := doc.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}
	return &entity.LikeState{LikesCount: doc.LikesCount, LikedBy: likedBy}, nil
}

// RegisterLike is a single conditional write: the filter requires the
// identity to still be absent from likedBy, and $addToSet keeps the
// membership a set even if the guard were ever bypassed. Counter and
// membership move together or not at all.
func (r *mongoReviewRepository) RegisterLike(ctx context.Context, id entity.ReviewID, identity string) (*entity.LikeState, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "likedBy": bson.M{"$ne": identity}},
		bson.M{
			"$inc":      bson.M{"likesCount": 1},
			"$addToSet": bson.M{"likedBy": identity},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return nil, classifyMongoError("Failed to register like", err)
	}

	if result.MatchedCount == 0 {
		// Either the review vanished or the identity got there first.
		state, stateErr := r.LikeState(ctx, id)
		if stateErr != nil {
			return nil, stateErr
		}
		if state.Liked(identity) {
			return nil, errors.AlreadyLiked(nil)
		}
		return nil, errors.NotFound("Review", nil)
	}

	return r.LikeState(ctx, id)
}

func (r *mongoReviewRepository) UpdateMessage(ctx context.Context, id entity.ReviewID, author, message string) (int64, error) {
	oid, err := objectID(id)
	if err != nil {
		return 0, err
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "author": author},
		bson.M{"$set": bson.M{"message": message, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, classifyMongoError("Failed to update review", err)
	}

	return result.MatchedCount, nil
}

func objectID(id entity.ReviewID) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id.String())
	if err != nil {
		return primitive.NilObjectID, errors.InvalidIdentifier("Invalid review ID", err)
	}
	return oid, nil
}

func classifyMongoError(message string, err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return errors.Unavailable(message, err)
	}
	return errors.Internal(message, err)
}
