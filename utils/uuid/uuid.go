package uuid

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	guuid "github.com/google/uuid"
)

// 分布式id：运行记录、广播等使用snowflake，requestId使用短uuid

type SnowNode struct {
	node *snowflake.Node
}

func NewNode(machineID int64) *SnowNode {
	node, err := snowflake.NewNode(machineID)
	if err != nil {
		panic(err)
	}
	return &SnowNode{node: node}
}

// GenID 生成一个全局唯一的int64 id
func (s *SnowNode) GenID() int64 {
	return s.node.Generate().Int64()
}

// GenUUID16 生成16位短uuid，用于requestId
func GenUUID16() string {
	u := strings.ReplaceAll(guuid.NewString(), "-", "")
	return u[:16]
}
