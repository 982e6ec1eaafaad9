package paymentRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cliniq/database"
	"cliniq/models"
)

type mongoPaymentRepo struct {
	coll *mongo.Collection
}

// NewMongoPaymentRepo returns the production PaymentRepository backed by the
// "payments" collection.
func NewMongoPaymentRepo() PaymentRepository {
	coll := database.MongoClient.Database("cliniq").Collection("payments")
	repo := &mongoPaymentRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		panic(fmt.Sprintf("payment repo: failed to ensure indexes: %v", err))
	}
	return repo
}

func (r *mongoPaymentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_reference"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("status_idx"),
		},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	return err
}

func (r *mongoPaymentRepo) CreateOrder(ctx context.Context, rec *models.PaymentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	rec.Status = models.PaymentOrderCreated
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert payment record: %w", err)
	}
	return nil
}

func (r *mongoPaymentRepo) GetByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec models.PaymentRecord
	if err := r.coll.FindOne(ctx, bson.M{"reference": reference}).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *mongoPaymentRepo) MarkSettled(ctx context.Context, reference, appointmentID, gatewayRef string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Conditional update: only a record still in "created" settles. A second
	// callback for the same reference matches nothing.
	filter := bson.M{"reference": reference, "status": models.PaymentOrderCreated}
	update := bson.M{"$set": bson.M{
		"status":         models.PaymentOrderSettled,
		"appointment_id": appointmentID,
		"gateway_ref":    gatewayRef,
		"updated_at":     time.Now(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoPaymentRepo) FlagForReconciliation(ctx context.Context, reference, note string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":       models.PaymentOrderReconcile,
		"failure_note": note,
		"updated_at":   time.Now(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"reference": reference}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
