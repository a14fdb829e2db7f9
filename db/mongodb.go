package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var COMMITMENTS = "commitments"
var SNAPSHOTS = "snapshots"

var MongodbClient *Mongo

type Mongo struct {
	Client  *mongo.Client
	Db      *mongo.Database
	ChainId string
}

// commitmentDoc is the bson shape of an archived commitment. Root and
// signature are stored hex encoded so the archive stays queryable from the
// shell.
type commitmentDoc struct {
	Id         uint64 `bson:"id"`
	MerkleRoot string `bson:"merkleroot"`
	ContentId  string `bson:"contentid"`
	Timestamp  uint64 `bson:"timestamp"`
	Signature  []byte `bson:"signature"`
	ChainId    string `bson:"chainid"`
}

type snapshotDoc struct {
	Id      uint64 `bson:"id"`
	ChainId string `bson:"chainid"`
	Content []byte `bson:"content"`
	SavedAt int64  `bson:"savedat"`
}

func InitMongodb(connectionString, instance, chainId string) (*Mongo, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(connectionString).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(context.TODO(), opts)
	if err != nil {
		return nil, err
	}

	err = client.Ping(context.Background(), nil)
	if err != nil {
		return nil, err
	}

	db := client.Database(instance)

	mongodb := &Mongo{
		Client:  client,
		Db:      db,
		ChainId: chainId,
	}
	return mongodb, nil
}

func (mongodb *Mongo) Close() {
	if err := mongodb.Client.Disconnect(context.TODO()); err != nil {
		panic(err)
	}
}

// SaveCommitment archives an accepted commitment. The archive is append-only;
// commitments are never mutated or deleted.
func (mongodb *Mongo) SaveCommitment(ctx context.Context, c *types.SnapshotCommitment) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	doc := &commitmentDoc{
		Id:         c.ID,
		MerkleRoot: c.MerkleRoot.Hex(),
		ContentId:  c.ContentID,
		Timestamp:  c.Timestamp,
		Signature:  c.Signature,
		ChainId:    mongodb.ChainId,
	}

	_, err := mongodb.Db.Collection(COMMITMENTS).InsertOne(ctx, doc)
	return err
}

// GetLatestCommitment returns the archived commitment with the highest id.
// On startup the verifier is reseeded from it so replay protection and the
// cooldown survive restarts.
func (mongodb *Mongo) GetLatestCommitment(ctx context.Context) (*types.SnapshotCommitment, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}})
	var doc commitmentDoc
	err := mongodb.Db.Collection(COMMITMENTS).FindOne(ctx, bson.D{{Key: "chainid", Value: mongodb.ChainId}}, opts).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.toCommitment(), nil
}

func (doc *commitmentDoc) toCommitment() *types.SnapshotCommitment {
	return &types.SnapshotCommitment{
		ID:         doc.Id,
		MerkleRoot: common.HexToHash(doc.MerkleRoot),
		ContentID:  doc.ContentId,
		Timestamp:  doc.Timestamp,
		Signature:  doc.Signature,
	}
}

// SaveSnapshot archives the full snapshot content alongside the commitment,
// for operators who want score history without going through the content
// store. The content is kept as canonical JSON bytes.
func (mongodb *Mongo) SaveSnapshot(ctx context.Context, snapshot *types.GlobalSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	content, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	doc := &snapshotDoc{
		Id:      snapshot.ID,
		ChainId: mongodb.ChainId,
		Content: content,
		SavedAt: time.Now().Unix(),
	}

	_, err = mongodb.Db.Collection(SNAPSHOTS).InsertOne(ctx, doc)
	return err
}
