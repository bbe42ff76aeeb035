package boardsync

import (
	"sync"
	"sync/atomic"
)

// EditGuard отмечает незавершённое редактирование имени группы. Пока guard
// удерживается, цикл опроса пропускается целиком, чтобы не затереть ввод.
// Это соглашение, а не блокировка: запись по-прежнему может прийти.
type EditGuard struct {
	held atomic.Int32
}

// Begin захватывает guard; возвращённая функция освобождает его один раз
func (g *EditGuard) Begin() (release func()) {
	g.held.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { g.held.Add(-1) })
	}
}

func (g *EditGuard) Held() bool {
	return g.held.Load() > 0
}
