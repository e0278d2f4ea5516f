package kafka

import (
	"testing"

	"go.uber.org/goleak"
)

// 消费者goroutine必须在Stop后退出
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
