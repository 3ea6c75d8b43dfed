package agent

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/calehh/dao-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

// ChainClient is the part of the node RPC the indexer reads.
type ChainClient interface {
	LatestHeight(ctx context.Context) (int64, error)
	BlockEvents(ctx context.Context, height int64) ([]abci.Event, error)
}

type rpcClient struct {
	cli *comethttp.HTTP
}

func NewRPCClient(chainUrl string) (ChainClient, error) {
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	return &rpcClient{cli: cli}, nil
}

func (r *rpcClient) LatestHeight(ctx context.Context) (int64, error) {
	st, err := r.cli.Status(ctx)
	if err != nil {
		return 0, err
	}
	return st.SyncInfo.LatestBlockHeight, nil
}

// BlockEvents returns the events of the successful txs of a block, in order.
func (r *rpcClient) BlockEvents(ctx context.Context, height int64) (events []abci.Event, err error) {
	res, err := r.cli.BlockResults(ctx, &height)
	if err != nil {
		return nil, err
	}
	for _, txRes := range res.TxsResults {
		if txRes.IsErr() {
			continue
		}
		events = append(events, txRes.Events...)
	}
	return
}

func OpenDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	db.DB().SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Height{}, &DAOInfo{}, &Member{}, &Proposal{}, &ProposalVote{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type ChainIndexer struct {
	logger        cmtlog.Logger
	Height        int64
	db            *gorm.DB
	cli           ChainClient
	interval      time.Duration
	eventHandlers map[string]eventHandler
}

func NewChainIndexer(logger cmtlog.Logger, db *gorm.DB, cli ChainClient) (*ChainIndexer, error) {
	h := Height{Id: 1}
	if err := db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		Height:   int64(h.Height + 1),
		db:       db,
		cli:      cli,
		interval: time.Second,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventInitializeType:      c.handleEventInitialize,
		types.EventAddMemberType:       c.handleEventAddMember,
		types.EventProposalType:        c.handleEventProposal,
		types.EventVoteType:            c.handleEventVote,
		types.EventExecuteProposalType: c.handleEventExecuteProposal,
	}
	return c, nil
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

var errDecodeEvent = errors.New("decode event fail")

func (c *ChainIndexer) handleEvent(db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(db, event, height)
	}
	return nil
}

func (c *ChainIndexer) handleEventInitialize(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventInitialize(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Save(&DAOInfo{Id: 1, Admin: ev.Admin, Token: ev.Token, Height: uint64(height)}).Error
}

func (c *ChainIndexer) handleEventAddMember(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventAddMember(event)
	if ev == nil {
		return errDecodeEvent
	}
	member := Member{
		Address:         ev.Member,
		Admin:           ev.Admin,
		Amount:          ev.Amount,
		JoinedTimestamp: ev.Timestamp,
		Height:          uint64(height),
	}
	return db.Save(&member).Error
}

func (c *ChainIndexer) handleEventProposal(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposal(event)
	if ev == nil {
		return errDecodeEvent
	}
	proposal := Proposal{
		Id:           uint64(ev.ProposalId),
		Proposer:     ev.Proposer,
		Description:  ev.Description,
		Target:       ev.Target,
		Function:     ev.Function,
		Deadline:     ev.Deadline,
		Status:       uint64(types.ProposalStatusActive),
		VotesFor:     "0",
		VotesAgainst: "0",
		NewHeight:    uint64(height),
	}
	return db.Save(&proposal).Error
}

func (c *ChainIndexer) handleEventVote(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventVote(event)
	if ev == nil {
		return errDecodeEvent
	}
	vote := ProposalVote{
		Proposal: uint64(ev.ProposalId),
		Voter:    ev.Voter,
		VoteFor:  ev.VoteFor,
		Weight:   ev.Weight,
		Height:   uint64(height),
	}
	if err := db.Create(&vote).Error; err != nil {
		return err
	}
	return db.Model(&Proposal{Id: uint64(ev.ProposalId)}).Updates(map[string]interface{}{
		"votes_for":     ev.VotesFor,
		"votes_against": ev.VotesAgainst,
	}).Error
}

func (c *ChainIndexer) handleEventExecuteProposal(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventExecuteProposal(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Model(&Proposal{Id: uint64(ev.ProposalId)}).Updates(map[string]interface{}{
		"status":        ev.Status,
		"settle_height": uint64(height),
		"executor":      ev.Caller,
		"result":        hex.EncodeToString(ev.Result),
	}).Error
}

// indexBlock stores the events of one block and advances the indexed height in
// a single database transaction.
func (c *ChainIndexer) indexBlock(ctx context.Context, height int64) (err error) {
	events, err := c.cli.BlockEvents(ctx, height)
	if err != nil {
		return err
	}
	tx := c.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	for _, event := range events {
		if err = c.handleEvent(tx, event, height); err != nil {
			c.logger.Error("handle event fail", "height", height, "type", event.Type, "err", err)
			tx.Rollback()
			return err
		}
	}
	if err = tx.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// Sync indexes every block up to the node's latest height.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	latest, err := c.cli.LatestHeight(ctx)
	if err != nil {
		return err
	}
	for latest >= c.Height {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("indexer syncing", "height", c.Height)
		if err = c.indexBlock(ctx, c.Height); err != nil {
			return err
		}
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
			}
		}
	}
}

// indexedHeight reads the last indexed block from the database.
func (c *ChainIndexer) indexedHeight() (int64, error) {
	h := Height{Id: 1}
	if err := c.db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return int64(h.Height), nil
}

func (c *ChainIndexer) getDAOInfo() (*DAOInfo, error) {
	var info DAOInfo
	err := c.db.Where("id = ?", 1).First(&info).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *ChainIndexer) getProposals(status *uint64, page int, pageSize int) ([]Proposal, uint64, error) {
	q := c.db.Model(&Proposal{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	proposals := make([]Proposal, 0)
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("id = ?", proposalId).First(&proposal).Error
	if err != nil {
		return Proposal{}, err
	}
	return proposal, nil
}

func (c *ChainIndexer) getProposalsByProposer(proposer string, page int, pageSize int) ([]Proposal, uint64, error) {
	proposals := make([]Proposal, 0)
	err := c.db.Where("proposer = ?", proposer).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Proposal{}).Where("proposer = ?", proposer).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getVotesByProposal(proposal uint64) ([]ProposalVote, error) {
	votes := make([]ProposalVote, 0)
	err := c.db.Where("proposal = ?", proposal).Order("id asc").Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (c *ChainIndexer) getVotesByVoter(voter string, page int, pageSize int) ([]ProposalVote, error) {
	votes := make([]ProposalVote, 0)
	err := c.db.Where("voter = ?", voter).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (c *ChainIndexer) getMembers(page int, pageSize int) ([]Member, uint64, error) {
	members := make([]Member, 0)
	err := c.db.Order("height asc, address asc").Offset(page * pageSize).Limit(pageSize).Find(&members).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Member{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (c *ChainIndexer) getMember(address string) (*Member, error) {
	var member Member
	err := c.db.Where("address = ?", address).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}
