package agent

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

type DAOInfo struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Admin  string `json:"admin"`
	Token  string `json:"token"`
	Height uint64 `json:"height"`
}

type Member struct {
	Address         string `gorm:"primary_key" json:"address"`
	Admin           string `json:"admin"`
	Amount          string `json:"amount"`
	JoinedTimestamp uint64 `json:"joined_timestamp"`
	Height          uint64 `json:"height"`
}

type Proposal struct {
	Id           uint64 `gorm:"primary_key" json:"id"`
	Proposer     string `json:"proposer"`
	Description  string `json:"description"`
	Target       string `json:"target"`
	Function     string `json:"function"`
	Deadline     uint64 `json:"deadline"`
	Status       uint64 `json:"status"`
	VotesFor     string `json:"votes_for"`
	VotesAgainst string `json:"votes_against"`
	NewHeight    uint64 `json:"new_height"`
	SettleHeight uint64 `json:"settle_height"`
	Executor     string `json:"executor"`
	Result       string `json:"result"`
}

type ProposalVote struct {
	Id       uint64 `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Proposal uint64 `json:"proposal"`
	Voter    string `json:"voter"`
	VoteFor  bool   `json:"vote_for"`
	Weight   string `json:"weight"`
	Height   uint64 `json:"height"`
}
