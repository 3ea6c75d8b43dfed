package agent

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const defaultPageSize = 20

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
	srv        *http.Server
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.GET("/status", s.handleStatus)
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getMembers", s.handleGetMembers)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.srv = &http.Server{Addr: listenAddr, Handler: s.engine}
	return s
}

func (s *Service) Start() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Service) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func pageOf(page, pageSize int) (int, int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

func (s *Service) fail(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type StatusResponse struct {
	Height int64    `json:"height"`
	DAO    *DAOInfo `json:"dao"`
}

func (s *Service) handleStatus(c *gin.Context) {
	info, err := s.indexer.getDAOInfo()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.fail(c, err)
		return
	}
	height, err := s.indexer.indexedHeight()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Height: height, DAO: info})
}

type ProposalInfo struct {
	Proposal Proposal       `json:"proposal"`
	Votes    []ProposalVote `json:"votes"`
}

type GetProposalsReq struct {
	ProposalId uint64  `json:"proposalId"`
	Proposer   string  `json:"proposer"`
	Status     *uint64 `json:"status"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
}

type GetProposalsResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalsResponse
	response.Proposals = make([]ProposalInfo, 0)
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, pageSize := pageOf(requestData.Page, requestData.PageSize)

	var proposals []Proposal
	var err error
	switch {
	case requestData.ProposalId != 0:
		var p Proposal
		p, err = s.indexer.getProposalById(requestData.ProposalId)
		proposals = []Proposal{p}
		response.Total = 1
	case requestData.Proposer != "":
		proposals, response.Total, err = s.indexer.getProposalsByProposer(requestData.Proposer, page, pageSize)
	default:
		proposals, response.Total, err = s.indexer.getProposals(requestData.Status, page, pageSize)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	for _, p := range proposals {
		votes, err := s.indexer.getVotesByProposal(p.Id)
		if err != nil {
			s.fail(c, err)
			return
		}
		response.Proposals = append(response.Proposals, ProposalInfo{Proposal: p, Votes: votes})
	}
	c.JSON(http.StatusOK, response)
}

type GetMembersReq struct {
	Address  string `json:"address"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetMembersResponse struct {
	Members []Member `json:"members"`
	Total   uint64   `json:"total"`
}

func (s *Service) handleGetMembers(c *gin.Context) {
	var requestData GetMembersReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.Address != "" {
		m, err := s.indexer.getMember(requestData.Address)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, GetMembersResponse{Members: []Member{*m}, Total: 1})
		return
	}
	page, pageSize := pageOf(requestData.Page, requestData.PageSize)
	members, total, err := s.indexer.getMembers(page, pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GetMembersResponse{Members: members, Total: total})
}

type GetVotesReq struct {
	Voter    string `json:"voter"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []ProposalVote `json:"votes"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.Voter == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "voter is required"})
		return
	}
	page, pageSize := pageOf(requestData.Page, requestData.PageSize)
	votes, err := s.indexer.getVotesByVoter(requestData.Voter, page, pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GetVotesResponse{Votes: votes})
}
