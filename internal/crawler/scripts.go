package crawler

// Scripts injetados nas páginas do XHS. Todos são funções auto-contidas que
// retornam string (ou null em caso de falha interna), nunca deixam exceção
// vazar para o Eval do rod.

// jsCountNoteItems conta quantos cards de nota já renderizaram na busca.
const jsCountNoteItems = `() => String(document.querySelectorAll('.note-item').length)`

// jsDismissLoginModal fecha o modal de login que o XHS joga por cima dos
// resultados. Sem fechar, os cards atrás dele nunca terminam de carregar.
const jsDismissLoginModal = `() => {
	try {
		var m = document.querySelector('.login-modal');
		if (!m) return 'no_modal';
		var b = m.querySelector('.close-button') || m.querySelector('.icon-btn-wrapper');
		if (b) { b.click(); return 'closed'; }
		var mask = m.querySelector('.reds-mask');
		if (mask) { mask.click(); return 'mask_clicked'; }
		m.style.display = 'none';
		return 'hidden';
	} catch (e) { return 'error:' + e.message; }
}`

// jsExtractCards extrai os dados de todos os cards da página de busca.
// Roda inteiro no browser para evitar round-trips por elemento.
//
// Detalhe importante: cada card tem DOIS tipos de <a>:
//  1. <a href="/explore/{id}">, wrapper simples, SEM xsec_token
//  2. <a class="cover ..." href="/search_result/{id}?xsec_token=...">, tem o
//     token, mas com path /search_result/ que precisa ser reescrito para
//     /explore/ antes de abrir a página de detalhe.
const jsExtractCards = `() => {
	var cards = [];
	var items = document.querySelectorAll('.note-item');
	for (var i = 0; i < items.length; i++) {
		var item = items[i];
		var noteLink = '';
		var allLinks = item.querySelectorAll('a');

		// Estratégia 1: <a> com xsec_token no href
		for (var j = 0; j < allLinks.length; j++) {
			var href = allLinks[j].getAttribute('href') || '';
			if (href.indexOf('xsec_token') !== -1 &&
				(href.indexOf('/explore/') !== -1 || href.indexOf('/search_result/') !== -1)) {
				noteLink = href;
				break;
			}
		}

		// Estratégia 2: <a class="cover ...">
		if (!noteLink) {
			for (var j = 0; j < allLinks.length; j++) {
				var cls = allLinks[j].className || '';
				if (cls.indexOf('cover') !== -1) {
					noteLink = allLinks[j].getAttribute('href') || '';
					break;
				}
			}
		}

		// Estratégia 3: primeiro <a> com /explore/
		if (!noteLink) {
			for (var j = 0; j < allLinks.length; j++) {
				var href2 = allLinks[j].getAttribute('href') || '';
				if (href2.indexOf('/explore/') !== -1) {
					noteLink = href2;
					break;
				}
			}
		}

		if (!noteLink) continue;

		noteLink = noteLink.replace('/search_result/', '/explore/');

		var pathPart = noteLink.split('?')[0].replace(/\/+$/, '');
		var pathParts = pathPart.split('/');
		var noteId = pathParts[pathParts.length - 1] || '';
		if (!noteId) continue;

		if (noteLink.charAt(0) === '/') {
			noteLink = 'https://www.xiaohongshu.com' + noteLink;
		}

		var title = '', author = '', authorLink = '', likes = '';
		var footer = item.querySelector('.footer');
		if (footer) {
			var titleEl = footer.querySelector('.title');
			if (titleEl) title = (titleEl.textContent || '').trim();

			var authorWrapper = footer.querySelector('.author-wrapper');
			if (authorWrapper) {
				var authorEl = authorWrapper.querySelector('.author');
				if (authorEl) author = (authorEl.textContent || '').trim();
				var authorLinkEl = authorWrapper.querySelector('a');
				if (authorLinkEl) {
					authorLink = authorLinkEl.getAttribute('href') || '';
					if (authorLink.charAt(0) === '/') {
						authorLink = 'https://www.xiaohongshu.com' + authorLink;
					}
				}
			}

			var likeEl = footer.querySelector('.like-wrapper');
			if (likeEl) {
				var likeSpan = likeEl.querySelector('span');
				likes = ((likeSpan ? likeSpan.textContent : likeEl.textContent) || '').trim();
			}
		}

		cards.push({
			note_id: noteId,
			note_link: noteLink,
			title: title,
			author: author,
			author_link: authorLink,
			likes: likes
		});
	}
	return JSON.stringify(cards);
}`

// jsExtractInitialState lê o window.__INITIAL_STATE__ e reduz para o conjunto
// de campos que interessa. NUNCA serializa o state inteiro, ele costuma ter
// referências circulares e objetos proxy que explodem o JSON.stringify.
const jsExtractInitialState = `() => {
	try {
		var state = window.__INITIAL_STATE__;
		if (!state || !state.note) return null;

		var noteMap = state.note.noteDetailMap || state.note.noteDetail || {};
		var keys = Object.keys(noteMap);
		if (keys.length === 0) return null;

		var entry = noteMap[keys[0]];
		var n = entry.note || entry;
		if (!n) return null;

		var user = n.user || {};
		var interact = n.interactInfo || {};
		var images = (n.imageList || []).map(function (img) {
			return {
				urlDefault: img.urlDefault || '',
				urlPre: img.urlPre || '',
				url: img.url || '',
				infoList: (img.infoList || []).map(function (info) {
					return { url: info.url || '' };
				})
			};
		});
		var tags = (n.tagList || []).map(function (tag) {
			return { name: tag.name || '', id: tag.id || '' };
		});

		var result = {
			noteId: n.noteId || '',
			type: n.type || '',
			title: n.title || '',
			desc: n.desc || '',
			user: {
				nickname: user.nickname || '',
				userId: user.userId || user.uid || ''
			},
			interactInfo: {
				likedCount: String(interact.likedCount || '0'),
				commentCount: String(interact.commentCount || '0'),
				collectedCount: String(interact.collectedCount || '0'),
				shareCount: String(interact.shareCount || '0')
			},
			time: n.time ? String(n.time) : '',
			ipLocation: n.ipLocation || '',
			imageList: images,
			tagList: tags
		};
		return JSON.stringify(result);
	} catch (e) {
		return null;
	}
}`

// jsPerformLike localiza e aciona o botão de curtir na página de detalhe.
// Confere o estado atual antes de clicar para não DEScurtir uma nota já
// curtida. Retorna: 'liked', 'already_liked', 'no_button' ou 'error:...'.
const jsPerformLike = `() => {
	try {
		var likeBtn = document.querySelector('.like-wrapper')
			|| document.querySelector('.engage-bar .like')
			|| document.querySelector('[class*="like-wrapper"]');
		if (!likeBtn) return 'no_button';

		var cls = likeBtn.className || '';
		if (cls.indexOf('active') !== -1 || cls.indexOf('liked') !== -1) {
			return 'already_liked';
		}

		// O estado também pode estar no SVG/ícone filho
		var icon = likeBtn.querySelector('svg')
			|| likeBtn.querySelector('[class*="like-icon"]')
			|| likeBtn.querySelector('.like-icon');
		if (icon) {
			var iconCls = icon.className || '';
			if (typeof iconCls === 'object' && iconCls.baseVal) {
				iconCls = iconCls.baseVal;
			}
			if (iconCls.indexOf('active') !== -1 || iconCls.indexOf('liked') !== -1) {
				return 'already_liked';
			}
		}

		likeBtn.click();
		return 'liked';
	} catch (e) {
		return 'error:' + e.message;
	}
}`
