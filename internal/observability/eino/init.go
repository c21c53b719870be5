package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var (
	registerOnce sync.Once
	handler      einocallbacks.Handler
)

// Handler 返回对话模型回调：调用指标、llm.generate span、失败日志
func Handler() einocallbacks.Handler {
	registerOnce.Do(func() {
		handler = cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Handler()
	})
	return handler
}

// Init 把 Handler 注册为进程级全局回调，重复调用无副作用
func Init() {
	initOnce.Do(func() {
		einocallbacks.AppendGlobalHandlers(Handler())
	})
}

var initOnce sync.Once
