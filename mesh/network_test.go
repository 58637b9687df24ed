package mesh

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/meshflood/history"
	"github.com/sarchlab/meshflood/space"
)

type runner struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	nw     *Network
	nodes  []*Node
}

func startAll(nw *Network, nodes ...*Node) *runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &runner{cancel: cancel, nw: nw, nodes: nodes}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = nw.Run(ctx)
	}()

	for _, n := range nodes {
		r.wg.Add(1)
		go func(n *Node) {
			defer r.wg.Done()
			_ = n.Run(ctx)
		}(n)
	}

	return r
}

func (r *runner) stop() {
	for _, n := range r.nodes {
		n.Kill()
	}

	r.nw.Stop()
	r.cancel()
	r.wg.Wait()
}

var _ = Describe("Network", func() {
	var (
		allocator *AddressAllocator
		log       *history.Log
		nw        *Network
	)

	newNode := func(addr Address, pos space.Position, orders ...SendOrder) *Node {
		n, err := MakeBuilder().
			WithAllocator(allocator).
			WithAddress(addr).
			WithPosition(pos).
			WithRecorder(log).
			WithSchedule(orders...).
			Build("")
		Expect(err).NotTo(HaveOccurred())

		return n
	}

	BeforeEach(func() {
		allocator = NewAddressAllocator(DefaultAddrMin, DefaultAddrMax)
		log = history.NewLog()
		nw = NewNetwork(15)
	})

	Context("registration", func() {
		It("should attach added nodes", func() {
			a := newNode(1, space.At(0, 0))
			b := newNode(2, space.At(3, 4))
			nw.AddNode(b)
			nw.AddNode(a)

			Expect(nw.Nodes()).To(Equal([]*Node{a, b}))

			found, ok := nw.Node(2)
			Expect(ok).To(BeTrue())
			Expect(found).To(BeIdenticalTo(b))

			Expect(nw.NodesMap()).To(Equal(NodesMap{
				X:         []float64{0, 3},
				Y:         []float64{0, 4},
				Addresses: []Address{1, 2},
			}))
		})

		It("should panic when a node is added twice", func() {
			a := newNode(1, space.At(0, 0))
			nw.AddNode(a)

			Expect(func() { nw.AddNode(a) }).To(Panic())
		})

		It("should panic when subscribing an unknown node", func() {
			Expect(func() { nw.Subscribe(5) }).To(Panic())
		})

		It("should tell whether positions hear each other", func() {
			Expect(nw.CanHear(space.At(0, 0), space.At(14, 0))).To(BeTrue())
			Expect(nw.CanHear(space.At(0, 0), space.At(15, 0))).To(BeFalse())
		})
	})

	Context("delivery", func() {
		var a, b, c *Node

		BeforeEach(func() {
			a = newNode(1, space.At(0, 0))
			b = newNode(2, space.At(1, 0))
			c = newNode(3, space.At(500, 0))
			nw.AddNode(a)
			nw.AddNode(b)
			nw.AddNode(c)
		})

		It("should become ready once running", func() {
			Expect(nw.Ready()).NotTo(BeClosed())

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error)
			go func() { done <- nw.Run(ctx) }()

			Eventually(nw.Ready()).Should(BeClosed())

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})

		It("should deliver to every node but the sender, in order", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = nw.Run(ctx) }()

			for i := 0; i < 10; i++ {
				env := envelopeFrom(1, uint32(i+1), 14, a.Position())
				nw.Publish(env)
			}

			for _, addr := range []Address{2, 3} {
				mailbox := nw.Subscribe(addr)
				Eventually(mailbox.Len).Should(Equal(10))

				for i := 0; i < 10; i++ {
					env, ok := mailbox.Pop()
					Expect(ok).To(BeTrue())
					Expect(env.Packet.Seq).To(Equal(uint32(i + 1)))
				}
			}

			Expect(nw.Subscribe(1).Len()).To(BeZero())
		})

		It("should drop envelopes published after stop", func() {
			nw.Stop()
			nw.Publish(envelopeFrom(1, 1, 14, a.Position()))

			Expect(nw.Run(context.Background())).To(Succeed())
			Expect(nw.Subscribe(2).Len()).To(BeZero())
		})
	})

	Context("flooding", func() {
		It("should deliver a packet to a node in range", func() {
			a := newNode(1, space.At(0, 0), SendOrder{At: 0, Dst: 2})
			b := newNode(2, space.At(3, 0))
			nw.AddNode(a)
			nw.AddNode(b)

			r := startAll(nw, a, b)
			Eventually(func() []history.Record {
				return log.ByReporter(2)
			}).Should(HaveLen(1))
			r.stop()

			records := log.ByReporter(2)
			Expect(records).To(HaveLen(1))
			Expect(records[0].Src).To(Equal(1))
			Expect(records[0].Seq).To(Equal(uint32(1)))
			Expect(records[0].TTL).To(Equal(DefaultInitialTTL - 1))
			Expect(records[0].Accepted).To(BeTrue())
		})

		It("should not deliver to a node out of range", func() {
			nw = NewNetwork(1)
			a := newNode(1, space.At(0, 0), SendOrder{At: 0, Dst: 2})
			b := newNode(2, space.At(3, 0))
			nw.AddNode(a)
			nw.AddNode(b)

			r := startAll(nw, a, b)
			Consistently(log.Len, 200*time.Millisecond).Should(BeZero())
			r.stop()
		})

		It("should drop a duplicate relay", func() {
			a := newNode(1, space.At(0, 0))
			b := newNode(2, space.At(3, 0))
			nw.AddNode(a)
			nw.AddNode(b)

			r := startAll(nw, b)
			Eventually(b.State).Should(Equal(StateRunning))

			env := envelopeFrom(1, 1, 14, a.Position())
			nw.Publish(env)
			nw.Publish(env)

			Eventually(func() []history.Record {
				return log.ByReporter(2)
			}).Should(HaveLen(2))
			r.stop()

			records := log.ByReporter(2)
			Expect(records[0].Accepted).To(BeTrue())
			Expect(records[1].Accepted).To(BeFalse())
		})

		It("should record a late copy as a duplicate when all nodes hear each other", func() {
			a := newNode(1, space.At(0, 0), SendOrder{At: 0, Dst: 3})
			b := newNode(2, space.At(5, 0))
			c := newNode(3, space.At(10, 0))
			nw.AddNode(a)
			nw.AddNode(b)
			nw.AddNode(c)

			r := startAll(nw, a, b, c)
			Eventually(func() []history.Record {
				return log.ByReporter(3)
			}).Should(HaveLen(2))
			Consistently(log.Len, 200*time.Millisecond).Should(Equal(6))
			r.stop()

			var accepted, dropped []history.Record
			for _, rec := range log.ByReporter(3) {
				if rec.Src != 1 || rec.Seq != 1 {
					continue
				}

				if rec.Accepted {
					accepted = append(accepted, rec)
				} else {
					dropped = append(dropped, rec)
				}
			}

			Expect(accepted).To(HaveLen(1))
			Expect(accepted[0].SourcePosition).To(Equal(a.Position()))
			Expect(dropped).To(HaveLen(1))
			Expect(dropped[0].SourcePosition).To(Equal(b.Position()))
			Expect(dropped[0].Timestamp).NotTo(BeTemporally("<", accepted[0].Timestamp))
		})

		It("should stop a chain flood when the ttl runs out", func() {
			a, err := MakeBuilder().
				WithAllocator(NewAddressAllocator(1, 1)).
				WithPosition(space.At(0, 0)).
				WithRecorder(log).
				WithInitialTTL(3).
				WithSchedule(SendOrder{At: 0, Dst: 3}).
				Build("A")
			Expect(err).NotTo(HaveOccurred())
			b := newNode(2, space.At(10, 0))
			c := newNode(3, space.At(20, 0))
			nw.AddNode(a)
			nw.AddNode(b)
			nw.AddNode(c)

			r := startAll(nw, a, b, c)
			Eventually(func() []history.Record {
				return log.ByReporter(3)
			}).Should(HaveLen(1))
			Eventually(func() []history.Record {
				return log.ByReporter(1)
			}).Should(HaveLen(1))
			Consistently(log.Len, 200*time.Millisecond).Should(Equal(3))
			r.stop()

			atB := log.ByReporter(2)
			Expect(atB).To(HaveLen(1))
			Expect(atB[0].Accepted).To(BeTrue())
			Expect(atB[0].TTL).To(Equal(2))

			atC := log.ByReporter(3)
			Expect(atC[0].Accepted).To(BeTrue())
			Expect(atC[0].TTL).To(Equal(1))
			Expect(atC[0].SourcePosition).To(Equal(b.Position()))

			atA := log.ByReporter(1)
			Expect(atA[0].Accepted).To(BeFalse())

			frontier := log.Frontier(1, 1)
			Expect(frontier).To(HaveLen(2))
			Expect(frontier[0].Reporter).To(Equal(2))
			Expect(frontier[1].Reporter).To(Equal(3))
		})
	})
})
