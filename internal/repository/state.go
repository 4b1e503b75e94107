package repository

import (
	"context"
	"sync"
)

// State хранит последнее значение и рассылает его подписчикам.
// Новый подписчик сразу получает текущее значение; медленный подписчик
// пропускает промежуточные значения, но всегда видит последнее.
type State[T any] struct {
	mu     sync.RWMutex
	value  T
	clone  func(T) T
	subs   map[int]chan T
	nextID int
}

// NewState создаёт контейнер с начальным значением. clone вызывается
// на каждой выдаче значения наружу, чтобы подписчики не делили память.
func NewState[T any](initial T, clone func(T) T) *State[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &State[T]{
		value: initial,
		clone: clone,
		subs:  make(map[int]chan T),
	}
}

// Value возвращает копию текущего значения.
func (s *State[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone(s.value)
}

// Set заменяет значение и уведомляет подписчиков без блокировки.
func (s *State[T]) Set(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	for _, ch := range s.subs {
		// Вытесняем непрочитанное значение, в буфере остаётся только последнее.
		select {
		case <-ch:
		default:
		}
		ch <- s.clone(value)
	}
}

// Subscribe возвращает канал обновлений. Канал закрывается после отмены ctx.
func (s *State[T]) Subscribe(ctx context.Context) <-chan T {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan T, 1)
	ch <- s.clone(s.value)
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Subscribers возвращает количество активных подписчиков.
func (s *State[T]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
