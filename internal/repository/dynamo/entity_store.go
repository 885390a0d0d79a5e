// Package dynamo stores entities in a single DynamoDB table.
//
// Items are keyed by pk = "<Kind>#<ID>" and carry the entity JSON in the
// data attribute. Two global secondary indexes serve queries: KindIndex
// (kind, seq) and ParentIndex (parent_ref, seq). Root entities have no
// parent_ref, so ParentIndex is sparse.
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"conferencecentral/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

const (
	KindIndex   = "kind-seq-index"
	ParentIndex = "parent-seq-index"

	maxTransactItems = 100
	maxBatchGetKeys  = 100

	// UnprocessedKeys are retried with exponential backoff starting here.
	batchGetBackoff     = 50 * time.Millisecond
	maxBatchGetAttempts = 5
)

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// NewClient builds a DynamoDB client from the default AWS credential chain.
func NewClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// item is the stored shape of an entity.
type item struct {
	PK         string `dynamodbav:"pk"`
	Kind       string `dynamodbav:"kind"`
	ID         string `dynamodbav:"id"`
	ParentKind string `dynamodbav:"parent_kind,omitempty"`
	ParentID   string `dynamodbav:"parent_id,omitempty"`
	ParentRef  string `dynamodbav:"parent_ref,omitempty"`
	Version    int64  `dynamodbav:"version"`
	Seq        int64  `dynamodbav:"seq"`
	Data       string `dynamodbav:"data"`
}

func (it item) key() domain.Key {
	return domain.Key{ParentKind: it.ParentKind, ParentID: it.ParentID, Kind: it.Kind, ID: it.ID}
}

func (it item) record() domain.Record {
	return domain.Record{Key: it.key(), Version: it.Version, Data: json.RawMessage(it.Data)}
}

func ref(kind, id string) string {
	return kind + "#" + id
}

func pkOf(key domain.Key) string {
	return ref(key.Kind, key.ID)
}

func keyAttr(key domain.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: pkOf(key)}}
}

type entityStore struct {
	client       Client
	table        string
	maxAttempts  int
	batchBackoff time.Duration
	now          func() time.Time
}

// NewEntityStore returns an EntityStore over table. Transactions read with
// strongly consistent GetItem calls and commit through TransactWriteItems,
// conditioned on the version of every entity they read.
func NewEntityStore(client Client, table string, maxAttempts int) domain.EntityStore {
	return &entityStore{
		client:       client,
		table:        table,
		maxAttempts:  maxAttempts,
		batchBackoff: batchGetBackoff,
		now:          time.Now,
	}
}

func (s *entityStore) load(ctx context.Context, key domain.Key, consistent bool) (item, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            keyAttr(key),
		ConsistentRead: aws.Bool(consistent),
	})
	if err != nil {
		return item{}, false, err
	}
	if out.Item == nil {
		return item{}, false, nil
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return item{}, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return it, true, nil
}

func (s *entityStore) Get(ctx context.Context, key domain.Key, dst any) error {
	it, ok, err := s.load(ctx, key, false)
	if err != nil {
		return err
	}
	if !ok || it.key() != key {
		return domain.ErrNotFound
	}
	return json.Unmarshal([]byte(it.Data), dst)
}

func (s *entityStore) GetMulti(ctx context.Context, keys []domain.Key) ([]domain.Record, error) {
	found := make(map[domain.Key]item, len(keys))
	for start := 0; start < len(keys); start += maxBatchGetKeys {
		end := min(start+maxBatchGetKeys, len(keys))
		seen := make(map[string]bool)
		var attrs []map[string]types.AttributeValue
		for _, k := range keys[start:end] {
			if seen[pkOf(k)] {
				continue
			}
			seen[pkOf(k)] = true
			attrs = append(attrs, keyAttr(k))
		}
		request := map[string]types.KeysAndAttributes{s.table: {Keys: attrs}}
		for attempt := 0; len(request) > 0; attempt++ {
			if attempt == maxBatchGetAttempts {
				return nil, fmt.Errorf("batch get: keys still unprocessed after %d attempts", attempt)
			}
			if attempt > 0 {
				if err := sleep(ctx, s.batchBackoff<<(attempt-1)); err != nil {
					return nil, err
				}
			}
			out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, err
			}
			for _, raw := range out.Responses[s.table] {
				var it item
				if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
					return nil, fmt.Errorf("unmarshal item: %w", err)
				}
				found[it.key()] = it
			}
			request = out.UnprocessedKeys
		}
	}
	recs := make([]domain.Record, 0, len(keys))
	for _, k := range keys {
		if it, ok := found[k]; ok {
			recs = append(recs, it.record())
		}
	}
	return recs, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Put writes src as a single-entity transaction so the version stays
// monotonic under concurrent writers.
func (s *entityStore) Put(ctx context.Context, key domain.Key, src any) error {
	return s.RunInTransaction(ctx, func(ctx context.Context, tx domain.Tx) error {
		return tx.Put(ctx, key, src)
	})
}

func (s *entityStore) Delete(ctx context.Context, key domain.Key) error {
	it, ok, err := s.load(ctx, key, true)
	if err != nil {
		return err
	}
	if !ok || it.key() != key {
		return nil
	}
	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttr(key),
	})
	return err
}

func (s *entityStore) AllocateID(_ context.Context, kind string, parent *domain.Key) (domain.Key, error) {
	if kind == "" {
		return domain.Key{}, fmt.Errorf("%w: kind is required", domain.ErrInvalidInput)
	}
	if parent != nil {
		return domain.NewChildKey(*parent, kind, uuid.NewString()), nil
	}
	return domain.NewKey(kind, uuid.NewString()), nil
}

// Query reads every entity of the kind (or every child of the ancestor) from
// the matching index. Property filters, ordering and the limit are applied by
// Query.ApplyInProcess because entity bodies are opaque JSON to DynamoDB.
func (s *entityStore) Query(ctx context.Context, q domain.Query) ([]domain.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	input := &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		ExpressionAttributeNames: map[string]string{"#kind": "kind"},
	}
	if q.Ancestor != nil {
		input.IndexName = aws.String(ParentIndex)
		input.KeyConditionExpression = aws.String("#parent_ref = :parent_ref")
		input.FilterExpression = aws.String("#kind = :kind")
		input.ExpressionAttributeNames["#parent_ref"] = "parent_ref"
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":parent_ref": &types.AttributeValueMemberS{Value: ref(q.Ancestor.Kind, q.Ancestor.ID)},
			":kind":       &types.AttributeValueMemberS{Value: q.Kind},
		}
	} else {
		input.IndexName = aws.String(KindIndex)
		input.KeyConditionExpression = aws.String("#kind = :kind")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":kind": &types.AttributeValueMemberS{Value: q.Kind},
		}
	}

	var items []item
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			var it item
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, fmt.Errorf("unmarshal item: %w", err)
			}
			items = append(items, it)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })

	recs := make([]domain.Record, 0, len(items))
	for _, it := range items {
		recs = append(recs, it.record())
	}
	return q.ApplyInProcess(recs)
}

func (s *entityStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	return domain.RetryOnTxConflict(ctx, s.maxAttempts, func(ctx context.Context) error {
		tx := &transaction{
			store:  s,
			reads:  make(map[string]readState),
			writes: make(map[string]pendingWrite),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.commit(ctx)
	})
}

// mapTxError turns a cancelled transaction caused by a failed version
// condition or a competing transaction into ErrTxConflict.
func mapTxError(err error) error {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if reason.Code == nil {
				continue
			}
			switch *reason.Code {
			case "ConditionalCheckFailed", "TransactionConflict":
				return fmt.Errorf("%w: %s", domain.ErrTxConflict, *reason.Code)
			}
		}
		return err
	}
	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w: %s", domain.ErrTxConflict, conflict.ErrorMessage())
	}
	return err
}

type readState struct {
	exists  bool
	version int64
	seq     int64
}

type pendingWrite struct {
	key  domain.Key
	data []byte
}

type transaction struct {
	store  *entityStore
	reads  map[string]readState
	writes map[string]pendingWrite
	order  []string
}

func (t *transaction) observe(ctx context.Context, key domain.Key) (item, bool, error) {
	it, ok, err := t.store.load(ctx, key, true)
	if err != nil {
		return item{}, false, err
	}
	pk := pkOf(key)
	if _, seen := t.reads[pk]; !seen {
		t.reads[pk] = readState{exists: ok, version: it.Version, seq: it.Seq}
	} else if t.reads[pk].version != it.Version {
		return item{}, false, domain.ErrTxConflict
	}
	return it, ok && it.key() == key, nil
}

func (t *transaction) Get(ctx context.Context, key domain.Key, dst any) error {
	if w, ok := t.writes[pkOf(key)]; ok && w.key == key {
		return json.Unmarshal(w.data, dst)
	}
	it, ok, err := t.observe(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal([]byte(it.Data), dst)
}

func (t *transaction) Put(ctx context.Context, key domain.Key, src any) error {
	if key.Kind == "" || key.ID == "" {
		return domain.ErrInvalidKey
	}
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	pk := pkOf(key)
	if _, seen := t.reads[pk]; !seen {
		if _, _, err := t.observe(ctx, key); err != nil {
			return err
		}
	}
	if _, ok := t.writes[pk]; !ok {
		t.order = append(t.order, pk)
	}
	t.writes[pk] = pendingWrite{key: key, data: data}
	return nil
}

func versionCondition(rs readState) (*string, map[string]string, map[string]types.AttributeValue) {
	if !rs.exists {
		return aws.String("attribute_not_exists(pk)"), nil, nil
	}
	return aws.String("#version = :expected_version"),
		map[string]string{"#version": "version"},
		map[string]types.AttributeValue{
			":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(rs.version, 10)},
		}
}

func (t *transaction) commit(ctx context.Context) error {
	var items []types.TransactWriteItem
	for _, pk := range t.order {
		w := t.writes[pk]
		rs := t.reads[pk]
		seq := rs.seq
		if !rs.exists {
			seq = t.store.now().UnixNano()
		}
		it := item{
			PK:         pk,
			Kind:       w.key.Kind,
			ID:         w.key.ID,
			ParentKind: w.key.ParentKind,
			ParentID:   w.key.ParentID,
			Version:    rs.version + 1,
			Seq:        seq,
			Data:       string(w.data),
		}
		if w.key.HasParent() {
			it.ParentRef = ref(w.key.ParentKind, w.key.ParentID)
		}
		av, err := attributevalue.MarshalMap(it)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", w.key, err)
		}
		cond, names, values := versionCondition(rs)
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:                 aws.String(t.store.table),
				Item:                      av,
				ConditionExpression:       cond,
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
			},
		})
	}
	if len(items) == 0 {
		return nil
	}
	// Entities read but not written are pinned with a condition check.
	for pk, rs := range t.reads {
		if _, written := t.writes[pk]; written {
			continue
		}
		cond, names, values := versionCondition(rs)
		items = append(items, types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName:                 aws.String(t.store.table),
				Key:                       map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: pk}},
				ConditionExpression:       cond,
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
			},
		})
	}
	if len(items) > maxTransactItems {
		return fmt.Errorf("transaction touches %d entities, limit is %d", len(items), maxTransactItems)
	}
	_, err := t.store.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	return mapTxError(err)
}
